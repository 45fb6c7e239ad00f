package node

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Codec 文档编解码器
// 每种配置格式（xml、yaml、json、toml、tsv、excel、hcl）实现一个编解码器
type Codec interface {
	// Name 编解码器名称，如 "xml"
	Name() string

	// Decode 从输入流解析出根节点
	Decode(r io.Reader) (*Node, error)

	// Encode 将根节点写出到输出流
	Encode(w io.Writer, root *Node) error
}

// ChangeListener 文档变更监听器，参数为被修改的节点
type ChangeListener func(changed *Node)

// Document 一次加载得到的配置文档
type Document struct {
	root   *Node
	file   string
	codec  Codec
	marker Marker

	mu        sync.Mutex
	listeners []ChangeListener
}

// NewDocument 用已有根节点创建文档
func NewDocument(root *Node, codec Codec) *Document {
	d := &Document{root: root, codec: codec}
	root.parent = nil
	root.doc = d
	return d
}

// ReadFile 读取并解析配置文件
// 参数:
//
//	path: 配置文件路径
//	codec: 对应格式的编解码器
//
// 返回值:
//
//	*Document: 解析后的文档，记录了文件标记用于变更检测
//	error: 读取或解析错误
func ReadFile(path string, codec Codec) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件信息失败: %w", err)
	}

	root, err := codec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析 %s 配置失败 (%s): %w", codec.Name(), path, err)
	}

	doc := NewDocument(root, codec)
	doc.file = path
	doc.marker = Marker{ModTime: info.ModTime(), Size: info.Size(), Sum: xxhash.Sum64(data)}
	return doc, nil
}

// ReadString 解析内存中的配置文本
func ReadString(text string, codec Codec) (*Document, error) {
	return Read(strings.NewReader(text), codec)
}

// Read 从输入流解析配置
func Read(r io.Reader, codec Codec) (*Document, error) {
	root, err := codec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 配置失败: %w", codec.Name(), err)
	}
	return NewDocument(root, codec), nil
}

// Root 返回根节点
func (d *Document) Root() *Node {
	return d.root
}

// File 返回来源文件路径，内存文档为空
func (d *Document) File() string {
	return d.file
}

// Codec 返回文档使用的编解码器
func (d *Document) Codec() Codec {
	return d.codec
}

// SetCodec 更换写出使用的编解码器，用于另存为其他格式
func (d *Document) SetCodec(codec Codec) {
	d.codec = codec
}

// Marker 返回最近一次读取或保存时的文件标记
func (d *Document) Marker() Marker {
	return d.marker
}

// SetMarker 更新文件标记，用于内容未变但修改时间变化的情况
func (d *Document) SetMarker(m Marker) {
	d.marker = m
}

// OnChange 注册变更监听器
func (d *Document) OnChange(fn ChangeListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

func (d *Document) notifyChanged(changed *Node) {
	d.mu.Lock()
	listeners := make([]ChangeListener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(changed)
	}
}

// Encode 用文档的编解码器写出
func (d *Document) Encode(w io.Writer) error {
	return d.codec.Encode(w, d.root)
}

// SaveFile 将文档保存到文件，并刷新文件标记
// 刷新后的标记让自身写入不会被识别为外部修改
func (d *Document) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := d.codec.Encode(&buf, d.root); err != nil {
		return fmt.Errorf("编码 %s 配置失败: %w", d.codec.Name(), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("读取配置文件信息失败: %w", err)
	}
	d.file = path
	d.marker = Marker{ModTime: info.ModTime(), Size: info.Size(), Sum: xxhash.Sum64(buf.Bytes())}
	return nil
}

// Marker 文件变更标记
// 修改时间与大小相同时视为未变化，否则再比较内容指纹
type Marker struct {
	ModTime time.Time
	Size    int64
	Sum     uint64
}

// IsZero 是否为空标记
func (m Marker) IsZero() bool {
	return m.ModTime.IsZero() && m.Size == 0 && m.Sum == 0
}

// Equal 两个标记是否描述同一份文件内容
func (m Marker) Equal(o Marker) bool {
	return m.ModTime.Equal(o.ModTime) && m.Size == o.Size && m.Sum == o.Sum
}

// StatFile 读取文件当前标记
func StatFile(path string) (Marker, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Marker{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, err
	}
	return Marker{ModTime: info.ModTime(), Size: info.Size(), Sum: xxhash.Sum64(data)}, nil
}

// HasChangedSince 判断文件自标记 since 之后是否发生了内容变化
// 返回值:
//
//	bool: 是否变化
//	Marker: 文件当前标记
//	error: 读取文件错误
func HasChangedSince(path string, since Marker) (bool, Marker, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, since, err
	}
	if info.ModTime().Equal(since.ModTime) && info.Size() == since.Size {
		return false, since, nil
	}

	current, err := StatFile(path)
	if err != nil {
		return false, since, err
	}
	return current.Sum != since.Sum || current.Size != since.Size, current, nil
}
