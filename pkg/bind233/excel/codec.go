// Package excel Excel 配置编解码器
// 每个工作表映射为根节点下以表名命名的节点，表内每个数据行映射为行节点，
// 表头单元格作为行节点的属性名
package excel

import (
	"errors"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// DefaultRowName 行节点默认名称
const DefaultRowName = "Row"

// Codec Excel 编解码器
//
// 默认布局为第 1 行表头、第 2 行开始为数据。
// 策划表常见的多行表头布局可以通过 HeaderRow / DataRow / FirstColumn 调整，
// 例如前四行为注释与类型说明的表：HeaderRow=4, DataRow=5, FirstColumn=1
type Codec struct {
	HeaderRow   int    // 表头所在行（从 0 开始）
	DataRow     int    // 数据起始行（从 0 开始）
	FirstColumn int    // 起始列（从 0 开始），之前的列会被忽略
	RowName     string // 行节点名称
}

// NewCodec 创建默认布局的 Excel 编解码器
func NewCodec() *Codec {
	return &Codec{HeaderRow: 0, DataRow: 1, RowName: DefaultRowName}
}

// Name 返回 "excel"
func (c *Codec) Name() string {
	return "excel"
}

func (c *Codec) rowName() string {
	if c.RowName == "" {
		return DefaultRowName
	}
	return c.RowName
}

// Decode 读取工作簿中的所有工作表
func (c *Codec) Decode(r io.Reader) (*node.Node, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root := node.New("")
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		sheet := root.AddChild(node.New(sheetName))
		if len(rows) <= c.HeaderRow {
			continue
		}

		headers := rows[c.HeaderRow]
		for i := c.DataRow; i < len(rows); i++ {
			cells := rows[i]
			row := node.New(c.rowName())
			for col := c.FirstColumn; col < len(cells) && col < len(headers); col++ {
				if headers[col] == "" {
					continue
				}
				row.SetAttr(headers[col], cells[col])
			}
			// 跳过空行
			if len(row.Attrs) > 0 {
				sheet.AddChild(row)
			}
		}
	}
	return root, nil
}

// Encode 以默认布局写出工作簿，只支持 HeaderRow=0 且 DataRow=1
func (c *Codec) Encode(w io.Writer, root *node.Node) error {
	if c.HeaderRow != 0 || c.DataRow != 1 || c.FirstColumn != 0 {
		return errors.New("Excel 写出只支持默认布局")
	}
	if len(root.Children) == 0 {
		return errors.New("Excel 文档至少需要一个工作表")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range root.Children {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}
		if err := c.writeSheet(f, sheet); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func (c *Codec) writeSheet(f *excelize.File, sheet *node.Node) error {
	rows := sheet.ChildrenNamed(c.rowName())

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

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]interface{}, len(headers))
		for j, h := range headers {
			v, _ := row.Attr(h)
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
