// Package json JSON 配置编解码器
// 与 YAML 编解码器使用相同的树映射规则：对象键为子节点，数组展开为同名兄弟，
// "@key" 为属性，"#text" 为文本。写出时所有标量都以字符串形式输出
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
	yamlcodec "github.com/neko233-com/bind233-go/pkg/bind233/yaml"
)

// Codec JSON 编解码器
type Codec struct {
	// Indent 写出时的缩进，空字符串表示紧凑输出
	Indent string
}

// NewCodec 创建两空格缩进的 JSON 编解码器
func NewCodec() *Codec {
	return &Codec{Indent: "  "}
}

// Name 返回 "json"
func (c *Codec) Name() string {
	return "json"
}

// Decode 解析 JSON 文档，允许注释和末尾逗号（JWCC）
// 先规范化为标准 JSON 并统一用空格缩进，再借助 yaml.v3 按键的原始顺序构建配置树
func (c *Codec) Decode(r io.Reader) (*node.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("JSON 文档为空")
	}
	v, err := hujson.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("非法的 JSON 文档: %w", err)
	}
	v.Standardize()
	var standard bytes.Buffer
	if err := json.Indent(&standard, v.Pack(), "", "  "); err != nil {
		return nil, fmt.Errorf("非法的 JSON 文档: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(standard.Bytes(), &doc); err != nil {
		return nil, err
	}
	return yamlcodec.FromYAML(&doc)
}

// Encode 将配置树写出为 JSON 对象
func (c *Codec) Encode(w io.Writer, root *node.Node) error {
	var buf bytes.Buffer
	if err := writeObject(&buf, root); err != nil {
		return err
	}

	out := buf.Bytes()
	if c.Indent != "" {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, out, "", c.Indent); err != nil {
			return err
		}
		pretty.WriteByte('\n')
		out = pretty.Bytes()
	}
	_, err := w.Write(out)
	return err
}

func writeObject(buf *bytes.Buffer, n *node.Node) error {
	buf.WriteByte('{')
	first := true
	field := func(key string, write func() error) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeString(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		return write()
	}

	for _, a := range n.Attrs {
		value := a.Value
		if err := field(yamlcodec.AttrPrefix+a.Key, func() error { return writeString(buf, value) }); err != nil {
			return err
		}
	}
	if n.Text != "" {
		if err := field(yamlcodec.TextKey, func() error { return writeString(buf, n.Text) }); err != nil {
			return err
		}
	}
	for _, group := range yamlcodec.GroupChildren(n) {
		group := group
		err := field(group[0].Name, func() error {
			if len(group) == 1 {
				return writeValue(buf, group[0])
			}
			buf.WriteByte('[')
			for i, child := range group {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := writeValue(buf, child); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
			return nil
		})
		if err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, n *node.Node) error {
	if n.IsLeaf() {
		return writeString(buf, n.Text)
	}
	return writeObject(buf, n)
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
