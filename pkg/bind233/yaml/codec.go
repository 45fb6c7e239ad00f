// Package yaml YAML 配置编解码器
// 映射的键成为子节点，序列展开为同名兄弟节点，"@key" 成为属性，"#text" 成为文本
package yaml

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

const (
	// AttrPrefix 属性键前缀
	AttrPrefix = "@"
	// TextKey 同时拥有子节点和文本时的文本键
	TextKey = "#text"
)

// Codec YAML 编解码器
type Codec struct{}

// NewCodec 创建 YAML 编解码器
func NewCodec() *Codec {
	return &Codec{}
}

// Name 返回 "yaml"
func (c *Codec) Name() string {
	return "yaml"
}

// Decode 解析 YAML 文档，顶层映射即根节点（根节点名称为空）
func (c *Codec) Decode(r io.Reader) (*node.Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("YAML 文档为空")
		}
		return nil, err
	}
	return FromYAML(&doc)
}

// FromYAML 将 yaml.Node 文档转换为配置树，JSON 编解码器复用此逻辑
func FromYAML(doc *yaml.Node) (*node.Node, error) {
	top := doc
	if top.Kind == yaml.DocumentNode {
		if len(top.Content) == 0 {
			return nil, errors.New("YAML 文档为空")
		}
		top = top.Content[0]
	}
	top = resolveAlias(top)
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("顶层必须是映射，实际为 %s", kindName(top.Kind))
	}

	root := node.New("")
	if err := fillMapping(root, top); err != nil {
		return nil, err
	}
	return root, nil
}

func fillMapping(target *node.Node, m *yaml.Node) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		val := resolveAlias(m.Content[i+1])

		switch {
		case strings.HasPrefix(key, AttrPrefix):
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("属性 %q 必须是标量", key)
			}
			target.SetAttr(strings.TrimPrefix(key, AttrPrefix), scalarValue(val))
		case key == TextKey:
			target.Text = scalarValue(val)
		default:
			if err := appendValue(target, key, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendValue(parent *node.Node, name string, val *yaml.Node) error {
	switch val.Kind {
	case yaml.ScalarNode:
		parent.AddChild(node.NewText(name, scalarValue(val)))
	case yaml.MappingNode:
		child := parent.AddChild(node.New(name))
		return fillMapping(child, val)
	case yaml.SequenceNode:
		for _, item := range val.Content {
			if err := appendValue(parent, name, resolveAlias(item)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("键 %q 的值类型 %s 不受支持", name, kindName(val.Kind))
	}
	return nil
}

func scalarValue(val *yaml.Node) string {
	if val.Tag == "!!null" {
		return ""
	}
	return val.Value
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// Encode 将配置树写出为 YAML
func (c *Codec) Encode(w io.Writer, root *node.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ToYAML(root)); err != nil {
		return err
	}
	return enc.Close()
}

// ToYAML 将配置树转换为 yaml.Node，根节点名称不输出
func ToYAML(root *node.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mappingOf(root)}}
}

func valueOf(n *node.Node) *yaml.Node {
	if n.IsLeaf() {
		return scalar(n.Text)
	}
	return mappingOf(n)
}

func mappingOf(n *node.Node) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, a := range n.Attrs {
		m.Content = append(m.Content, scalar(AttrPrefix+a.Key), scalar(a.Value))
	}
	if n.Text != "" {
		m.Content = append(m.Content, scalar(TextKey), scalar(n.Text))
	}
	for _, group := range GroupChildren(n) {
		if len(group) == 1 {
			m.Content = append(m.Content, scalar(group[0].Name), valueOf(group[0]))
			continue
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, child := range group {
			seq.Content = append(seq.Content, valueOf(child))
		}
		m.Content = append(m.Content, scalar(group[0].Name), seq)
	}
	return m
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// GroupChildren 按名称分组子节点，组的顺序为名称首次出现的顺序
func GroupChildren(n *node.Node) [][]*node.Node {
	index := make(map[string]int)
	var groups [][]*node.Node
	for _, child := range n.Children {
		i, ok := index[child.Name]
		if !ok {
			i = len(groups)
			index[child.Name] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], child)
	}
	return groups
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
