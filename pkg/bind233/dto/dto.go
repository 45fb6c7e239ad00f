// Package dto 配置树的数据传输对象
// 用于向外部（命令行、前端、调试接口）输出标准化的配置树
package dto

import (
	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// NodeDto 节点数据传输对象
type NodeDto struct {
	// Name 节点名
	Name string `json:"name"`
	// Text 节点文本，为空时省略
	Text string `json:"text,omitempty"`
	// Attrs 属性列表，保持文档顺序
	Attrs []AttrDto `json:"attrs,omitempty"`
	// Children 子节点列表，保持文档顺序
	Children []NodeDto `json:"children,omitempty"`
}

// AttrDto 属性数据传输对象
type AttrDto struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DocumentDto 文档数据传输对象
type DocumentDto struct {
	// File 来源文件，内联配置为空
	File string `json:"file,omitempty"`
	// Format 文档格式，如 "xml", "yaml", "xlsx"
	Format string `json:"format"`
	// Root 根节点
	Root NodeDto `json:"root"`
}

// FromNode 将配置树转换为数据传输对象
func FromNode(n *node.Node) NodeDto {
	out := NodeDto{Name: n.Name, Text: n.Text}
	for _, a := range n.Attrs {
		out.Attrs = append(out.Attrs, AttrDto{Key: a.Key, Value: a.Value})
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, FromNode(c))
	}
	return out
}

// FromDocument 将文档转换为数据传输对象
func FromDocument(doc *node.Document) DocumentDto {
	return DocumentDto{
		File:   doc.File(),
		Format: doc.Codec().Name(),
		Root:   FromNode(doc.Root()),
	}
}

// ToNode 将数据传输对象还原为游离的配置树
func (d NodeDto) ToNode() *node.Node {
	n := node.NewText(d.Name, d.Text)
	for _, a := range d.Attrs {
		n.Attrs = append(n.Attrs, node.Attr{Key: a.Key, Value: a.Value})
	}
	for _, c := range d.Children {
		n.AddChild(c.ToNode())
	}
	return n
}
