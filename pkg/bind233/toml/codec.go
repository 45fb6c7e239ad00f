// Package toml TOML 配置编解码器
// 表映射为子节点，数组与表数组展开为同名兄弟节点，"@key" 成为属性，"#text" 成为文本。
// TOML 表在解码后不保留键的原始顺序，子节点按键名排序
package toml

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
	yamlcodec "github.com/neko233-com/bind233-go/pkg/bind233/yaml"
)

// Codec TOML 编解码器
type Codec struct{}

// NewCodec 创建 TOML 编解码器
func NewCodec() *Codec {
	return &Codec{}
}

// Name 返回 "toml"
func (c *Codec) Name() string {
	return "toml"
}

// Decode 解析 TOML 文档，顶层表即根节点（根节点名称为空）
func (c *Codec) Decode(r io.Reader) (*node.Node, error) {
	var doc map[string]any
	if err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	root := node.New("")
	if err := fillTable(root, doc); err != nil {
		return nil, err
	}
	return root, nil
}

func fillTable(target *node.Node, table map[string]any) error {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := table[key]
		switch {
		case strings.HasPrefix(key, yamlcodec.AttrPrefix):
			text, err := scalarText(val)
			if err != nil {
				return fmt.Errorf("属性 %q: %w", key, err)
			}
			target.SetAttr(strings.TrimPrefix(key, yamlcodec.AttrPrefix), text)
		case key == yamlcodec.TextKey:
			text, err := scalarText(val)
			if err != nil {
				return fmt.Errorf("文本 %q: %w", key, err)
			}
			target.Text = text
		default:
			if err := appendValue(target, key, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendValue(parent *node.Node, name string, val any) error {
	switch v := val.(type) {
	case map[string]any:
		return fillTable(parent.AddChild(node.New(name)), v)
	case []any:
		for _, item := range v {
			if err := appendValue(parent, name, item); err != nil {
				return err
			}
		}
		return nil
	case []map[string]any:
		for _, item := range v {
			if err := fillTable(parent.AddChild(node.New(name)), item); err != nil {
				return err
			}
		}
		return nil
	}
	text, err := scalarText(val)
	if err != nil {
		return fmt.Errorf("键 %q: %w", name, err)
	}
	parent.AddChild(node.NewText(name, text))
	return nil
}

func scalarText(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		// toml.LocalDate / LocalTime / LocalDateTime
		return v.String(), nil
	}
	return "", fmt.Errorf("值类型 %T 不是标量", val)
}

// Encode 将配置树写出为 TOML，所有标量以字符串输出
func (c *Codec) Encode(w io.Writer, root *node.Node) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(tableOf(root))
}

func tableOf(n *node.Node) map[string]any {
	table := make(map[string]any, len(n.Attrs)+len(n.Children)+1)
	for _, a := range n.Attrs {
		table[yamlcodec.AttrPrefix+a.Key] = a.Value
	}
	if n.Text != "" {
		table[yamlcodec.TextKey] = n.Text
	}
	for _, group := range yamlcodec.GroupChildren(n) {
		if len(group) == 1 {
			table[group[0].Name] = valueOf(group[0])
			continue
		}
		items := make([]any, 0, len(group))
		for _, child := range group {
			items = append(items, valueOf(child))
		}
		table[group[0].Name] = items
	}
	return table
}

func valueOf(n *node.Node) any {
	if n.IsLeaf() {
		return n.Text
	}
	return tableOf(n)
}
