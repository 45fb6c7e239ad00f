// Package node 提供层级配置文档的内存树模型
// 节点拥有名称、有序属性、有序子节点（允许同名兄弟）以及文本值
// 各种格式（XML、YAML、JSON、TOML、TSV、Excel、HCL）的编解码器都读写这棵树
package node

import (
	"fmt"
	"strings"
)

// Attr 节点属性
type Attr struct {
	Key   string
	Value string
}

// Node 配置树节点
type Node struct {
	Name     string
	Text     string
	Attrs    []Attr
	Children []*Node

	parent *Node
	doc    *Document
}

// New 创建节点
func New(name string) *Node {
	return &Node{Name: name}
}

// NewText 创建带文本值的节点
func NewText(name, text string) *Node {
	return &Node{Name: name, Text: text}
}

// Parent 返回父节点，根节点返回 nil
func (n *Node) Parent() *Node {
	return n.parent
}

// Document 返回节点所属文档，游离节点返回 nil
func (n *Node) Document() *Document {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.doc != nil {
			return cur.doc
		}
	}
	return nil
}

// AddChild 追加子节点并返回该子节点
func (n *Node) AddChild(child *Node) *Node {
	child.parent = n
	n.Children = append(n.Children, child)
	return child
}

// Attr 获取属性值
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr 设置属性，不存在时追加
func (n *Node) SetAttr(key, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Key == key {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Value: value})
}

// ChildrenNamed 返回指定名称的直接子节点（保持文档顺序）
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// IsLeaf 是否为只有文本的叶子节点
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0 && len(n.Attrs) == 0
}

// ResolveAll 按路径查找全部匹配的子树，顺序与文档一致
// 路径末段的属性部分只用于过滤拥有该属性的节点
func (n *Node) ResolveAll(p Path) []*Node {
	current := []*Node{n}
	for _, step := range p.steps {
		if step.Name != "" {
			var next []*Node
			for _, cur := range current {
				named := cur.ChildrenNamed(step.Name)
				if step.Index >= 0 {
					if step.Index < len(named) {
						next = append(next, named[step.Index])
					}
					continue
				}
				next = append(next, named...)
			}
			current = next
		}
		if step.Attr != "" {
			var withAttr []*Node
			for _, cur := range current {
				if _, ok := cur.Attr(step.Attr); ok {
					withAttr = append(withAttr, cur)
				}
			}
			current = withAttr
		}
		if len(current) == 0 {
			return nil
		}
	}
	return current
}

// ResolveOne 返回第一个匹配的子树，没有匹配时返回 nil
func (n *Node) ResolveOne(p Path) *Node {
	all := n.ResolveAll(p)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// Values 返回路径对应的全部标量值
// 末段为属性时返回属性值，否则返回节点文本
func (n *Node) Values(p Path) []string {
	nodes := n.ResolveAll(p)
	if len(nodes) == 0 {
		return nil
	}
	attr := p.Attr()
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if attr != "" {
			v, _ := node.Attr(attr)
			out = append(out, v)
			continue
		}
		out = append(out, node.Text)
	}
	return out
}

// Scalar 返回路径对应的第一个标量值
// 返回值:
//
//	string: 标量值
//	bool: 路径是否存在
func (n *Node) Scalar(p Path) (string, bool) {
	values := n.Values(p)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// SetScalar 按路径写入标量值，缺失的中间节点会被创建
// 写入后通知所属文档的变更监听器
func (n *Node) SetScalar(p Path, value string) error {
	cur := n
	for _, step := range p.steps {
		if step.Name == "" {
			continue
		}
		named := cur.ChildrenNamed(step.Name)
		switch {
		case step.Index < 0 && len(named) > 0:
			cur = named[0]
		case step.Index >= 0 && step.Index < len(named):
			cur = named[step.Index]
		case step.Index < 0 || step.Index == len(named):
			cur = cur.AddChild(New(step.Name))
		default:
			return fmt.Errorf("路径 %q 下标 %d 超出范围（当前 %d 个）", p.raw, step.Index, len(named))
		}
	}

	if attr := p.Attr(); attr != "" {
		cur.SetAttr(attr, value)
	} else {
		cur.Text = value
	}

	if doc := n.Document(); doc != nil {
		doc.notifyChanged(cur)
	}
	return nil
}

// Clone 深拷贝子树，结果为游离节点
func (n *Node) Clone() *Node {
	out := &Node{Name: n.Name, Text: n.Text}
	if len(n.Attrs) > 0 {
		out.Attrs = append([]Attr(nil), n.Attrs...)
	}
	for _, c := range n.Children {
		out.AddChild(c.Clone())
	}
	return out
}

// Walk 深度优先遍历，fn 返回 false 时停止深入该子树
func (n *Node) Walk(fn func(depth int, n *Node) bool) {
	n.walk(0, fn)
}

func (n *Node) walk(depth int, fn func(int, *Node) bool) {
	if !fn(depth, n) {
		return
	}
	for _, c := range n.Children {
		c.walk(depth+1, fn)
	}
}

// String 以缩进文本形式输出子树，便于调试
func (n *Node) String() string {
	var sb strings.Builder
	n.Walk(func(depth int, cur *Node) bool {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(cur.Name)
		for _, a := range cur.Attrs {
			fmt.Fprintf(&sb, " @%s=%q", a.Key, a.Value)
		}
		if cur.Text != "" {
			fmt.Fprintf(&sb, " = %q", cur.Text)
		}
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}
