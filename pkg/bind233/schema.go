package bind233

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// 结构体标签名
const (
	TagPath    = "bind233"
	TagDefault = "default"
	TagParser  = "parser"
)

// FieldSchema 单个字段的绑定描述，每个类型只解析一次
type FieldSchema struct {
	Name   string       // 字段名
	Index  []int        // reflect 字段下标，可跨越嵌入结构体
	Type   reflect.Type // 字段类型
	Nested bool         // 是否为嵌套的可绑定对象

	Tagged     bool   // 是否声明了 bind233 标签
	Path       string // 标签中的路径
	Required   bool   // 没有 default 标签时为 true
	Default    string // 默认值字面量
	Parser     string // 自定义解析方法名
	Kind       Kind   // 标量字段的转换类别
	Boxed      bool   // 标量字段是否为指针
	parsedPath node.Path
}

// IsNullDefault 默认值是否为 "null" 哨兵
func (f *FieldSchema) IsNullDefault() bool {
	return !f.Required && f.Default == NullDefault
}

// Schema 可绑定类型的结构描述
type Schema struct {
	Type   reflect.Type  // 结构体类型
	Path   string        // 嵌入 Base 或 List 字段上声明的路径
	Fields []FieldSchema // 按声明顺序排列的可绑定字段
}

var (
	configurableType = reflect.TypeOf((*Configurable)(nil)).Elem()
	baseType         = reflect.TypeOf(Base{})

	schemaCache sync.Map // reflect.Type -> *schemaEntry
)

type schemaEntry struct {
	schema *Schema
	err    error
}

// SchemaOf 返回对象类型的结构描述
func SchemaOf(c Configurable) (*Schema, error) {
	return schemaFor(reflect.TypeOf(c))
}

// schemaFor 解析并缓存类型 t（结构体或结构体指针）的描述
func schemaFor(t reflect.Type) (*Schema, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := schemaCache.Load(t); ok {
		entry := cached.(*schemaEntry)
		return entry.schema, entry.err
	}

	schema, err := buildSchema(t)
	entry, _ := schemaCache.LoadOrStore(t, &schemaEntry{schema: schema, err: err})
	return entry.(*schemaEntry).schema, entry.(*schemaEntry).err
}

func buildSchema(t reflect.Type) (*Schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, newBindError(ErrInvalidSchema, t.String(), "", "", fmt.Errorf("可绑定类型必须是结构体"))
	}
	schema := &Schema{Type: t}
	if err := collectFields(schema, t, nil); err != nil {
		return nil, err
	}
	return schema, nil
}

func collectFields(schema *Schema, t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		pathTag, tagged := sf.Tag.Lookup(TagPath)
		if pathTag == "-" {
			continue
		}

		if sf.Anonymous && isCarrier(sf.Type) {
			if tagged && schema.Path == "" {
				schema.Path = pathTag
			}
			// 嵌入的普通配置对象展开为当前类型的字段
			if sf.Type != baseType && !reflect.PointerTo(sf.Type).Implements(elementBinderType) {
				if err := collectFields(schema, sf.Type, index); err != nil {
					return err
				}
			}
			continue
		}

		_, hasDefault := sf.Tag.Lookup(TagDefault)
		_, hasParser := sf.Tag.Lookup(TagParser)
		if !sf.IsExported() {
			if tagged || hasDefault || hasParser {
				return fieldError(schema.Type, sf.Name, pathTag, "带标签的字段必须导出")
			}
			continue
		}

		nested := isNestedType(sf.Type)
		if !tagged {
			if hasDefault || hasParser {
				return fieldError(schema.Type, sf.Name, "", "缺少 bind233 路径标签")
			}
			if !nested {
				continue
			}
		}

		field, err := newFieldSchema(schema.Type, sf, index, nested, tagged, pathTag)
		if err != nil {
			return err
		}
		schema.Fields = append(schema.Fields, field)
	}
	return nil
}

func newFieldSchema(owner reflect.Type, sf reflect.StructField, index []int, nested, tagged bool, pathTag string) (FieldSchema, error) {
	def, hasDefault := sf.Tag.Lookup(TagDefault)
	f := FieldSchema{
		Name:     sf.Name,
		Index:    index,
		Type:     sf.Type,
		Nested:   nested,
		Tagged:   tagged,
		Path:     pathTag,
		Required: !hasDefault,
		Default:  def,
		Parser:   strings.TrimSpace(sf.Tag.Get(TagParser)),
	}
	if !tagged {
		return f, nil
	}

	if strings.TrimSpace(pathTag) == "" {
		return f, fieldError(owner, sf.Name, pathTag, "路径为空")
	}
	p, err := node.ParsePath(pathTag)
	if err != nil {
		return f, newBindError(ErrInvalidSchema, owner.String(), sf.Name, pathTag, err)
	}
	f.parsedPath = p

	if nested {
		if p.Attr() != "" {
			return f, fieldError(owner, sf.Name, pathTag, "嵌套对象的路径不能指向属性")
		}
		if f.Parser != "" {
			return f, fieldError(owner, sf.Name, pathTag, "嵌套对象不支持解析方法")
		}
		return f, nil
	}

	if f.Parser != "" {
		if _, err := parserMethod(owner, f.Parser); err != nil {
			return f, newBindError(ErrParserMethodNotFound, owner.String(), sf.Name, pathTag, err)
		}
		f.Kind = KindString
		return f, nil
	}

	f.Kind, f.Boxed = KindOf(sf.Type)
	if f.Kind == KindInvalid {
		return f, fieldError(owner, sf.Name, pathTag, fmt.Sprintf("不支持的字段类型 %s", sf.Type))
	}
	return f, nil
}

func fieldError(owner reflect.Type, field, path, msg string) error {
	return newBindError(ErrInvalidSchema, owner.String(), field, path, fmt.Errorf("%s", msg))
}

// isCarrier 是否为承载路径的嵌入字段（Base、List 或其他配置对象）
func isCarrier(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && (t == baseType || reflect.PointerTo(t).Implements(configurableType))
}

// isNestedType 字段类型是否为嵌套的可绑定对象
func isNestedType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr:
		return t.Elem().Kind() == reflect.Struct && t.Implements(configurableType)
	case reflect.Struct:
		return reflect.PointerTo(t).Implements(configurableType)
	case reflect.Interface:
		return t.Implements(configurableType)
	}
	return false
}

var (
	stringType = reflect.TypeOf("")
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// parserMethod 查找 owner 指针上的解析方法
// 方法签名必须为 func(string) 或 func(string) error
func parserMethod(owner reflect.Type, name string) (reflect.Method, error) {
	m, ok := reflect.PointerTo(owner).MethodByName(name)
	if !ok {
		return m, fmt.Errorf("%s 上不存在导出方法 %s", owner, name)
	}
	mt := m.Type
	if mt.NumIn() != 2 || mt.In(1) != stringType {
		return m, fmt.Errorf("方法 %s 必须只接收一个 string 参数", name)
	}
	if mt.NumOut() > 1 || (mt.NumOut() == 1 && mt.Out(0) != errorType) {
		return m, fmt.Errorf("方法 %s 只能返回 error", name)
	}
	return m, nil
}
