package bind233

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-logr/logr"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// binder 将文档子树绑定到配置对象
type binder struct {
	coercer Coercer
	log     logr.Logger

	// guard 在配置源锁内执行 fn，独立绑定和持锁会话中为空
	guard func(fn func() error) error
	// source 对象所属的配置源，独立绑定时为空
	source *Source

	// 以下字段只在持锁会话中使用，owner 为创建会话的绑定器
	owner *binder
	bound []*Base
}

// BindOption 绑定选项
type BindOption func(*binder)

// BindClock 设置日期字段拼接时刻所用的时钟
func BindClock(now func() time.Time) BindOption {
	return func(b *binder) {
		b.coercer.Now = now
	}
}

// BindDateOnly 日期字段不拼接当前时刻
func BindDateOnly() BindOption {
	return func(b *binder) {
		b.coercer.DateOnly = true
	}
}

// BindLogger 设置绑定过程使用的日志
func BindLogger(logger logr.Logger) BindOption {
	return func(b *binder) {
		b.log = logger
	}
}

func newBinder(opts ...BindOption) *binder {
	b := &binder{log: getLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind 用文档子树填充配置对象 c，然后递归绑定嵌套对象
// subtree 是 c 自身对应的节点，而不是父节点
// 参数:
//
//	c: 配置对象指针
//	subtree: 对象对应的文档子树
//	opts: 绑定选项
//
// 返回值:
//
//	error: *BindError，类别见 ErrMissingRequiredPath 等
func Bind(c Configurable, subtree *node.Node, opts ...BindOption) error {
	if subtree == nil {
		return newBindError(ErrMissingRequiredPath, typeName(c), "", PathOf(c), nil)
	}
	return newBinder(opts...).bind(c, subtree)
}

// BindPath 按对象自身路径在 parent 下查找子树并绑定
func BindPath(c Configurable, parent *node.Node, opts ...BindOption) error {
	return newBinder(opts...).bindChild(parent, c)
}

func (b *binder) run(fn func() error) error {
	if b.guard == nil {
		return fn()
	}
	return b.guard(fn)
}

// session 创建持锁会话，调用方必须已持有配置源的锁
// 会话中绑定的对象暂时指向会话，AfterBind 里经 Base 发起的调用因此不再加锁
func (b *binder) session() *binder {
	return &binder{coercer: b.coercer, log: b.log, source: b.source, owner: b}
}

// release 结束会话，把经手的对象交还 owner，之后的调用重新走锁
func (b *binder) release() {
	for _, base := range b.bound {
		if base.binder == b {
			base.binder = b.owner
		}
	}
	b.bound = nil
}

// inSession 在持锁会话中执行 fn
// 已处于会话中时直接执行，否则先加锁并开启新会话
func (b *binder) inSession(fn func(sess *binder) error) error {
	if b.owner != nil || b.guard == nil {
		return fn(b)
	}
	return b.guard(func() error {
		sess := b.session()
		defer sess.release()
		return fn(sess)
	})
}

// bindChild 解析子对象路径并绑定第一个匹配的子树
func (b *binder) bindChild(parent *node.Node, c Configurable) error {
	path := PathOf(c)
	if path == "" {
		return newBindError(ErrMissingConfigPath, typeName(c), "", "", nil)
	}
	p, err := node.ParsePath(path)
	if err != nil {
		return newBindError(ErrInvalidSchema, typeName(c), "", path, err)
	}
	sub := ResolveOne(parent, p)
	if sub == nil {
		return newBindError(ErrMissingRequiredPath, typeName(c), "", path, nil)
	}
	return b.bind(c, sub)
}

func (b *binder) bind(c Configurable, n *node.Node) error {
	v := reflect.ValueOf(c)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return newBindError(ErrInvalidSchema, typeName(c), "", "", fmt.Errorf("配置对象必须是非空指针"))
	}
	schema, err := schemaFor(v.Type())
	if err != nil {
		return err
	}

	b.log.V(2).Info("绑定配置对象", "type", schema.Type.String(), "node", n.Name)
	base := c.configBase()
	base.node = n
	base.binder = b
	if b.owner != nil {
		b.bound = append(b.bound, base)
	}

	obj := v.Elem()
	for i := range schema.Fields {
		f := &schema.Fields[i]
		if f.Nested {
			err = b.bindNested(schema, obj, f, n)
		} else {
			err = b.bindScalar(c, schema, obj, f, n)
		}
		if err != nil {
			return err
		}
	}

	for _, child := range base.attached {
		if err := b.bindChild(n, child); err != nil {
			return err
		}
	}

	if eb, ok := c.(elementBinder); ok {
		if err := eb.bindElements(b, n); err != nil {
			return err
		}
	}

	if ab, ok := c.(AfterBinder); ok {
		if err := ab.AfterBind(); err != nil {
			return newBindError(ErrConfigLoad, schema.Type.String(), "", PathOf(c), fmt.Errorf("AfterBind 失败: %w", err))
		}
	}
	return nil
}

func (b *binder) bindNested(schema *Schema, obj reflect.Value, f *FieldSchema, n *node.Node) error {
	field := obj.FieldByIndex(f.Index)

	if f.Tagged {
		sub := ResolveOne(n, f.parsedPath)
		if sub == nil {
			if f.Required {
				return newBindError(ErrMissingRequiredPath, schema.Type.String(), f.Name, f.Path, nil)
			}
			field.Set(reflect.Zero(f.Type))
			return nil
		}
		child, err := b.nestedInstance(schema, field, f)
		if err != nil {
			return err
		}
		child.configBase().SetPath(f.Path)
		return b.bind(child, sub)
	}

	child, err := b.nestedInstance(schema, field, f)
	if err != nil {
		return err
	}
	path := PathOf(child)
	if path == "" {
		return newBindError(ErrMissingConfigPath, schema.Type.String(), f.Name, "", nil)
	}
	p, err := node.ParsePath(path)
	if err != nil {
		return newBindError(ErrInvalidSchema, schema.Type.String(), f.Name, path, err)
	}
	sub := ResolveOne(n, p)
	if sub == nil {
		return newBindError(ErrMissingRequiredPath, schema.Type.String(), f.Name, path, nil)
	}
	return b.bind(child, sub)
}

// nestedInstance 返回字段中的嵌套对象，字段为空时先实例化
func (b *binder) nestedInstance(schema *Schema, field reflect.Value, f *FieldSchema) (Configurable, error) {
	if f.Type.Kind() == reflect.Struct {
		return field.Addr().Interface().(Configurable), nil
	}
	if !field.IsNil() {
		c, ok := field.Interface().(Configurable)
		if ok && !isNilPointer(c) {
			return c, nil
		}
	}

	v, err := instantiate(f.Type)
	if err != nil {
		return nil, newBindError(ErrSchemaInstantiation, schema.Type.String(), f.Name, f.Path, err)
	}
	field.Set(v)
	return v.Interface().(Configurable), nil
}

func isNilPointer(c Configurable) bool {
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func (b *binder) bindScalar(c Configurable, schema *Schema, obj reflect.Value, f *FieldSchema, n *node.Node) error {
	field := obj.FieldByIndex(f.Index)
	values := n.Values(f.parsedPath)
	fromDefault := false

	if len(values) == 0 {
		switch {
		case f.Required:
			return newBindError(ErrMissingRequiredPath, schema.Type.String(), f.Name, f.Path, nil)
		case f.IsNullDefault():
			if f.Parser == "" {
				field.Set(reflect.Zero(f.Type))
			}
			return nil
		case f.Kind == KindStringList && f.Parser == "":
			field.Set(reflect.ValueOf(splitList(f.Default)))
			return nil
		}
		values = []string{f.Default}
		fromDefault = true
	}

	if f.Parser != "" {
		return b.invokeParser(c, schema, f, values[0])
	}

	if f.Kind == KindStringList {
		field.Set(reflect.ValueOf(b.coercer.CoerceList(values)))
		return nil
	}

	v, err := b.coercer.Coerce(f.Type, values[0])
	if err != nil {
		if fromDefault {
			err = fmt.Errorf("默认值 %q 非法: %w", f.Default, err)
		}
		return newBindError(ErrTypeCoercion, schema.Type.String(), f.Name, f.Path, err)
	}
	field.Set(v)
	return nil
}

func (b *binder) invokeParser(c Configurable, schema *Schema, f *FieldSchema, raw string) error {
	method := reflect.ValueOf(c).MethodByName(f.Parser)
	if !method.IsValid() {
		return newBindError(ErrParserMethodNotFound, schema.Type.String(), f.Name, f.Path, fmt.Errorf("方法 %s 不存在", f.Parser))
	}
	out := method.Call([]reflect.Value{reflect.ValueOf(raw)})
	if len(out) == 1 && !out[0].IsNil() {
		return newBindError(ErrTypeCoercion, schema.Type.String(), f.Name, f.Path, out[0].Interface().(error))
	}
	return nil
}
