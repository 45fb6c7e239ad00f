// Package hcl HCL 配置编解码器
// 属性映射为文本子节点（列表展开为同名兄弟，对象映射为嵌套节点），
// 块映射为子节点，块标签依次写入 "label"、"label2"、"label3"... 属性
package hcl

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// Codec HCL 编解码器
// 写出是有损的：块节点上除标签外的属性写为块内属性，块节点自身的文本会被丢弃
type Codec struct {
	// Filename 诊断信息中使用的文件名
	Filename string
}

// NewCodec 创建 HCL 编解码器
func NewCodec() *Codec {
	return &Codec{Filename: "config.hcl"}
}

// Name 返回 "hcl"
func (c *Codec) Name() string {
	return "hcl"
}

// LabelAttr 返回第 i 个块标签对应的属性名
func LabelAttr(i int) string {
	if i == 0 {
		return "label"
	}
	return fmt.Sprintf("label%d", i+1)
}

// Decode 解析 HCL 文件体
func (c *Codec) Decode(r io.Reader) (*node.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	file, diags := hclsyntax.ParseConfig(src, c.Filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("解析 HCL 失败: %w", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.New("HCL 文件体类型不受支持")
	}

	root := node.New("")
	if err := fillBody(root, body); err != nil {
		return nil, err
	}
	return root, nil
}

type bodyItem struct {
	start int
	attr  *hclsyntax.Attribute
	block *hclsyntax.Block
}

// fillBody 按源码顺序展开属性和块
func fillBody(target *node.Node, body *hclsyntax.Body) error {
	items := make([]bodyItem, 0, len(body.Attributes)+len(body.Blocks))
	for _, attr := range body.Attributes {
		items = append(items, bodyItem{start: attr.SrcRange.Start.Byte, attr: attr})
	}
	for _, block := range body.Blocks {
		items = append(items, bodyItem{start: block.TypeRange.Start.Byte, block: block})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].start < items[j].start })

	for _, item := range items {
		if item.attr != nil {
			val, diags := item.attr.Expr.Value(nil)
			if diags.HasErrors() {
				return fmt.Errorf("计算属性 %q 失败: %w", item.attr.Name, diags)
			}
			if err := appendValue(target, item.attr.Name, val); err != nil {
				return err
			}
			continue
		}

		child := target.AddChild(node.New(item.block.Type))
		for i, label := range item.block.Labels {
			child.SetAttr(LabelAttr(i), label)
		}
		if err := fillBody(child, item.block.Body); err != nil {
			return err
		}
	}
	return nil
}

func appendValue(parent *node.Node, name string, val cty.Value) error {
	if val.IsNull() {
		parent.AddChild(node.NewText(name, ""))
		return nil
	}
	if !val.IsWhollyKnown() {
		return fmt.Errorf("属性 %q 的值无法静态计算", name)
	}

	ty := val.Type()
	switch {
	case ty.IsPrimitiveType():
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return fmt.Errorf("属性 %q 转换为字符串失败: %w", name, err)
		}
		parent.AddChild(node.NewText(name, str.AsString()))
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if err := appendValue(parent, name, elem); err != nil {
				return err
			}
		}
	case ty.IsObjectType() || ty.IsMapType():
		child := parent.AddChild(node.New(name))
		for it := val.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			if err := appendValue(child, key.AsString(), elem); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("属性 %q 的类型 %s 不受支持", name, ty.FriendlyName())
	}
	return nil
}

// Encode 将配置树写出为 HCL
// 只有文本的子节点写为属性（同名多个时写为元组），其余写为块
func (c *Codec) Encode(w io.Writer, root *node.Node) error {
	f := hclwrite.NewEmptyFile()
	writeBody(f.Body(), root)
	_, err := w.Write(hclwrite.Format(f.Bytes()))
	return err
}

func writeBody(body *hclwrite.Body, n *node.Node) {
	for _, a := range n.Attrs {
		if isLabel(a.Key) {
			continue
		}
		body.SetAttributeValue(a.Key, cty.StringVal(a.Value))
	}

	for _, group := range groupChildren(n) {
		if allLeaves(group) {
			if len(group) == 1 {
				body.SetAttributeValue(group[0].Name, cty.StringVal(group[0].Text))
				continue
			}
			values := make([]cty.Value, len(group))
			for i, child := range group {
				values[i] = cty.StringVal(child.Text)
			}
			body.SetAttributeValue(group[0].Name, cty.TupleVal(values))
			continue
		}
		for _, child := range group {
			block := body.AppendNewBlock(child.Name, labelsOf(child))
			writeBody(block.Body(), child)
		}
	}
}

func isLabel(key string) bool {
	return key == "label" || (strings.HasPrefix(key, "label") && len(key) > len("label") && strings.Trim(key[len("label"):], "0123456789") == "")
}

func labelsOf(n *node.Node) []string {
	var labels []string
	for i := 0; ; i++ {
		v, ok := n.Attr(LabelAttr(i))
		if !ok {
			return labels
		}
		labels = append(labels, v)
	}
}

func allLeaves(group []*node.Node) bool {
	for _, n := range group {
		if !n.IsLeaf() {
			return false
		}
	}
	return true
}

func groupChildren(n *node.Node) [][]*node.Node {
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
