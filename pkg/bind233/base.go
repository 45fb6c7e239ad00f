package bind233

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// Configurable 可绑定对象
// 通过嵌入 Base（或 List）实现，不能直接实现
type Configurable interface {
	configBase() *Base
}

// PathProvider 以代码方式提供对象路径，优先于嵌入字段上的标签
type PathProvider interface {
	ConfigPath() string
}

// Base 可绑定对象的公共部分，嵌入到配置结构体中使用
//
//	type ParentConfig struct {
//		bind233.Base `bind233:"ParentConfig"`
//		PropertyA bool `bind233:"PropertyA"`
//	}
type Base struct {
	path     string
	node     *node.Node
	binder   *binder
	attached []Configurable
}

func (b *Base) configBase() *Base {
	return b
}

// Path 返回运行时设置的路径
// 由父对象字段标签指定路径时，绑定过程会调用 SetPath
func (b *Base) Path() string {
	return b.path
}

// SetPath 设置运行时路径，优先于 ConfigPath 和嵌入字段标签
func (b *Base) SetPath(path string) {
	b.path = path
}

// Node 返回最近一次绑定的文档子树，未绑定时返回 nil
// 可在 AfterBind 中用它读取标签没有覆盖的值
func (b *Base) Node() *node.Node {
	return b.node
}

// IsBound 是否已经绑定过文档
func (b *Base) IsBound() bool {
	return b.node != nil
}

// Attached 返回后注入的子对象
func (b *Base) Attached() []Configurable {
	out := make([]Configurable, len(b.attached))
	copy(out, b.attached)
	return out
}

// Attach 后注入一个子对象，子对象的路径相对当前对象的子树解析
// 当前对象已绑定时立即绑定子对象，之后每次重新绑定当前对象都会一并重新绑定
// 立即绑定失败时不保留该子对象
// 参数:
//
//	c: 子对象，必须能解析出路径
//
// 返回值:
//
//	error: 缺少路径或立即绑定失败
func (b *Base) Attach(c Configurable) error {
	if PathOf(c) == "" {
		return newBindError(ErrMissingConfigPath, typeName(c), "", "", nil)
	}
	for _, existing := range b.attached {
		if existing == c {
			return nil
		}
	}
	b.attached = append(b.attached, c)

	if b.node == nil || b.binder == nil {
		return nil
	}
	err := b.binder.inSession(func(sess *binder) error {
		return sess.bindChild(b.node, c)
	})
	if err != nil {
		b.attached = b.attached[:len(b.attached)-1]
	}
	return err
}

// RegisterRoot 向绑定当前对象的配置源注册根对象，语义同 Source.Register
// 在 AfterBind 中注册根对象时使用此方法，Source.Register 会等待当前绑定结束而死锁
func (b *Base) RegisterRoot(c Configurable) error {
	if b.binder == nil || b.binder.source == nil {
		return fmt.Errorf("%w: 对象没有通过配置源绑定", ErrConfigLoad)
	}
	if PathOf(c) == "" {
		return newBindError(ErrMissingConfigPath, typeName(c), "", "", nil)
	}
	src := b.binder.source
	return b.binder.inSession(func(sess *binder) error {
		return src.register(sess, c)
	})
}

// WriteProperty 在当前对象的子树上写入标量值
// 只修改文档，不修改已绑定的字段；配置源可写时文档会被保存
// 参数:
//
//	path: 相对当前对象子树的路径，如 "PropertyA" 或 "[@id]"
//	value: 要写入的值，time.Time 按 DateLayout 格式化，枚举写入常量名
func (b *Base) WriteProperty(path string, value any) error {
	if b.node == nil {
		return fmt.Errorf("%w: 对象尚未绑定，无法写入 %q", ErrConfigLoad, path)
	}
	p, err := node.ParsePath(path)
	if err != nil {
		return err
	}
	text, err := FormatValue(value)
	if err != nil {
		return err
	}
	write := func() error { return b.node.SetScalar(p, text) }
	if b.binder == nil {
		return write()
	}
	return b.binder.run(write)
}

// FormatValue 将字段值格式化为文档文本，与绑定时的转换规则对应
func FormatValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case time.Time:
		return v.Format(DateLayout), nil
	case time.Duration:
		return v.String(), nil
	case Char:
		return v.String(), nil
	case []string:
		return strings.Join(v, ","), nil
	case Enum:
		rv := reflect.ValueOf(v)
		var ordinal int64
		switch {
		case rv.CanInt():
			ordinal = rv.Int()
		case rv.CanUint():
			ordinal = int64(rv.Uint())
		default:
			return fmt.Sprint(v), nil
		}
		names := v.EnumNames()
		if ordinal < 0 || ordinal >= int64(len(names)) {
			return "", fmt.Errorf("枚举序号 %d 超出范围", ordinal)
		}
		return names[ordinal], nil
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		return string(text), err
	}
	return fmt.Sprint(value), nil
}

// PathOf 返回对象的有效路径
// 顺序: 运行时路径、ConfigPath()、嵌入 Base/List 字段上的标签
func PathOf(c Configurable) string {
	if p := c.configBase().path; p != "" {
		return p
	}
	if pp, ok := c.(PathProvider); ok {
		if p := pp.ConfigPath(); p != "" {
			return p
		}
	}
	if schema, err := schemaFor(reflect.TypeOf(c)); err == nil {
		return schema.Path
	}
	return ""
}

var factories sync.Map // reflect.Type -> func() Configurable

// RegisterFactory 注册类型 I 的构造函数
// I 可以是配置结构体指针，也可以是包含 Configurable 的接口类型
// 接口类型的字段必须注册构造函数才能被实例化
func RegisterFactory[I Configurable](fn func() I) {
	t := reflect.TypeOf((*I)(nil)).Elem()
	factories.Store(t, func() Configurable { return fn() })
}

// instantiate 创建类型 t 的新实例，优先使用注册的构造函数
func instantiate(t reflect.Type) (reflect.Value, error) {
	if fn, ok := factories.Load(t); ok {
		c := fn.(func() Configurable)()
		v := reflect.ValueOf(c)
		if !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil()) {
			return reflect.Value{}, fmt.Errorf("%s 的构造函数返回了 nil", t)
		}
		if !v.Type().AssignableTo(t) {
			return reflect.Value{}, fmt.Errorf("%s 的构造函数返回了 %s", t, v.Type())
		}
		return v, nil
	}
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
		return reflect.New(t.Elem()), nil
	}
	return reflect.Value{}, fmt.Errorf("%s 没有注册构造函数", t)
}

func typeName(c any) string {
	t := reflect.TypeOf(c)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}
