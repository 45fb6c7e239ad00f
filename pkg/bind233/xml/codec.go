// Package xml XML 配置编解码器
// 负责 XML 文档与配置树之间的转换，是配置源的默认格式
package xml

import (
	"errors"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// DefaultRootName 根节点没有名称时（例如来自 YAML）使用的根元素名
const DefaultRootName = "Config"

// Codec XML 编解码器
// 元素映射为节点，属性映射为节点属性，去除首尾空白后的文本映射为节点文本
type Codec struct {
	// Indent 写出时的缩进空格数，0 表示不缩进
	Indent int
}

// NewCodec 创建默认两空格缩进的编解码器
func NewCodec() *Codec {
	return &Codec{Indent: 2}
}

// Name 返回 "xml"
func (c *Codec) Name() string {
	return "xml"
}

// Decode 解析 XML 文档，返回文档根元素对应的节点
func (c *Codec) Decode(r io.Reader) (*node.Node, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("XML 文档缺少根元素")
	}
	return fromElement(root), nil
}

func fromElement(el *etree.Element) *node.Node {
	n := node.New(el.FullTag())
	for _, a := range el.Attr {
		n.Attrs = append(n.Attrs, node.Attr{Key: a.FullKey(), Value: a.Value})
	}
	n.Text = strings.TrimSpace(el.Text())
	for _, child := range el.ChildElements() {
		n.AddChild(fromElement(child))
	}
	return n
}

// Encode 将配置树写出为 XML
func (c *Codec) Encode(w io.Writer, root *node.Node) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	name := root.Name
	if name == "" {
		name = DefaultRootName
	}
	toElement(doc.CreateElement(name), root)
	if c.Indent > 0 {
		doc.Indent(c.Indent)
	}
	_, err := doc.WriteTo(w)
	return err
}

func toElement(el *etree.Element, n *node.Node) {
	for _, a := range n.Attrs {
		el.CreateAttr(a.Key, a.Value)
	}
	if n.Text != "" {
		el.SetText(n.Text)
	}
	for _, child := range n.Children {
		toElement(el.CreateElement(child.Name), child)
	}
}

// LooksLikeXML 判断一段文本是否为内联 XML 而非文件路径
func LooksLikeXML(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "<") || !strings.HasSuffix(trimmed, ">") {
		return false
	}
	return strings.Contains(trimmed, "</") || strings.HasSuffix(trimmed, "/>")
}
