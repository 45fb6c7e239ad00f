// Package tsv TSV 配置编解码器
// 第一行为表头，后续每行映射为根节点下的一个行节点，列值作为行节点的属性
package tsv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// DefaultRowName 行节点默认名称
const DefaultRowName = "Row"

// Codec TSV (Tab-Separated Values) 编解码器
type Codec struct {
	// RowName 行节点名称，为空时使用 DefaultRowName
	RowName string
}

// NewCodec 创建 TSV 编解码器
func NewCodec() *Codec {
	return &Codec{RowName: DefaultRowName}
}

// Name 返回 "tsv"
func (c *Codec) Name() string {
	return "tsv"
}

func (c *Codec) rowName() string {
	if c.RowName == "" {
		return DefaultRowName
	}
	return c.RowName
}

// Decode 解析 TSV 内容，空行会被跳过
// 行节点通过路径 "Row" 访问，列值通过 "[@列名]" 访问
func (c *Codec) Decode(r io.Reader) (*node.Node, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("TSV 文档缺少表头")
	}

	headers := strings.Split(strings.TrimSpace(lines[0]), "\t")
	root := node.New("")
	for lineNo, line := range lines[1:] {
		values := strings.Split(line, "\t")
		if len(values) > len(headers) {
			return nil, fmt.Errorf("第 %d 行列数 %d 超过表头列数 %d", lineNo+2, len(values), len(headers))
		}
		row := root.AddChild(node.New(c.rowName()))
		for i, value := range values {
			if headers[i] == "" {
				continue
			}
			row.SetAttr(headers[i], value)
		}
	}
	return root, nil
}

// Encode 将根节点下的行节点写出为 TSV，表头为所有行属性名的并集（按首次出现顺序）
func (c *Codec) Encode(w io.Writer, root *node.Node) error {
	rows := root.ChildrenNamed(c.rowName())

	var headers []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, a := range row.Attrs {
			if !seen[a.Key] {
				seen[a.Key] = true
				headers = append(headers, a.Key)
			}
		}
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(headers, "\t") + "\n"); err != nil {
		return err
	}
	for _, row := range rows {
		values := make([]string, len(headers))
		for i, h := range headers {
			v, _ := row.Attr(h)
			if strings.ContainsAny(v, "\t\n") {
				return fmt.Errorf("列 %q 的值包含制表符或换行: %q", h, v)
			}
			values[i] = v
		}
		if _, err := bw.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
