package bind233

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// NullDefault 默认值哨兵：路径不存在时字段置为零值或 nil，而不是报错
const NullDefault = "null"

// DateLayout 日期字段的文本格式（月/日/年）
const DateLayout = "01/02/2006"

// Char 单字符字段类型，取文本的第一个字符
type Char rune

func (c Char) String() string {
	return string(rune(c))
}

// Enum 枚举字段需要实现的接口
// 字段类型必须是整数类型，EnumNames 按序号列出全部常量名
// 文本与常量名精确匹配后，字段被赋值为对应的序号
type Enum interface {
	EnumNames() []string
}

// Kind 字段值的转换类别
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindChar
	KindEnum
	KindDate
	KindDuration
	KindText
	KindStringList
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindBool:       "bool",
	KindInt:        "int",
	KindUint:       "uint",
	KindFloat:      "float",
	KindString:     "string",
	KindChar:       "char",
	KindEnum:       "enum",
	KindDate:       "date",
	KindDuration:   "duration",
	KindText:       "text",
	KindStringList: "list-of-string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

var (
	charType            = reflect.TypeOf(Char(0))
	timeType            = reflect.TypeOf(time.Time{})
	durationType        = reflect.TypeOf(time.Duration(0))
	stringSliceType     = reflect.TypeOf([]string(nil))
	enumType            = reflect.TypeOf((*Enum)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// KindOf 返回类型对应的转换类别，指针类型按其元素类型判断
// 返回值:
//
//	Kind: 转换类别，不支持的类型为 KindInvalid
//	bool: 是否为指针（可为 nil 的包装类型）
func KindOf(t reflect.Type) (Kind, bool) {
	boxed := false
	if t.Kind() == reflect.Ptr {
		boxed = true
		t = t.Elem()
	}

	switch {
	case t == charType:
		return KindChar, boxed
	case t == timeType:
		return KindDate, boxed
	case t == durationType:
		return KindDuration, boxed
	case t == stringSliceType:
		if boxed {
			return KindInvalid, boxed
		}
		return KindStringList, false
	case isInteger(t.Kind()) && (t.Implements(enumType) || reflect.PointerTo(t).Implements(enumType)):
		return KindEnum, boxed
	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		return KindText, boxed
	}

	switch t.Kind() {
	case reflect.Bool:
		return KindBool, boxed
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt, boxed
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindUint, boxed
	case reflect.Float32, reflect.Float64:
		return KindFloat, boxed
	case reflect.String:
		return KindString, boxed
	}
	return KindInvalid, boxed
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// Coercer 将文本值转换为字段类型
type Coercer struct {
	// Now 日期字段拼接时刻使用的时钟，为空时使用 time.Now
	Now func() time.Time

	// DateOnly 为 true 时日期字段保持午夜零点，不拼接当前时刻
	DateOnly bool
}

// Coerce 将单个文本值转换为类型 t 的值
// t 为指针类型时返回指向新值的指针
// 参数:
//
//	t: 目标类型
//	raw: 文本值
//
// 返回值:
//
//	reflect.Value: 可直接赋给类型为 t 的字段的值
//	error: 转换失败
func (c Coercer) Coerce(t reflect.Type, raw string) (reflect.Value, error) {
	kind, boxed := KindOf(t)
	if kind == KindInvalid {
		return reflect.Value{}, fmt.Errorf("不支持的字段类型 %s", t)
	}
	if kind == KindStringList {
		return reflect.ValueOf(splitList(raw)), nil
	}

	elem := t
	if boxed {
		elem = t.Elem()
	}
	v := reflect.New(elem).Elem()
	if err := c.coerceInto(kind, v, raw); err != nil {
		return reflect.Value{}, err
	}
	if boxed {
		return v.Addr(), nil
	}
	return v, nil
}

// CoerceList 将多个文本值转换为字符串列表
func (c Coercer) CoerceList(raws []string) []string {
	out := make([]string, len(raws))
	copy(out, raws)
	return out
}

func (c Coercer) coerceInto(kind Kind, v reflect.Value, raw string) error {
	switch kind {
	case KindBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			v.SetBool(true)
		case "false":
			v.SetBool(false)
		default:
			return fmt.Errorf("%q 不是布尔值", raw)
		}
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case KindUint:
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case KindString:
		v.SetString(raw)
	case KindChar:
		if raw == "" {
			return fmt.Errorf("字符字段的值为空")
		}
		r, _ := utf8.DecodeRuneInString(raw)
		v.SetInt(int64(r))
	case KindEnum:
		return coerceEnum(v, raw)
	case KindDate:
		t, err := c.parseDate(raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t))
	case KindDuration:
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		v.SetInt(int64(d))
	case KindText:
		u := v.Addr().Interface().(encoding.TextUnmarshaler)
		return u.UnmarshalText([]byte(raw))
	default:
		return fmt.Errorf("不支持的转换类别 %s", kind)
	}
	return nil
}

func coerceEnum(v reflect.Value, raw string) error {
	var names []string
	if e, ok := v.Interface().(Enum); ok {
		names = e.EnumNames()
	} else {
		names = v.Addr().Interface().(Enum).EnumNames()
	}
	for i, name := range names {
		if name != raw {
			continue
		}
		if v.CanInt() {
			v.SetInt(int64(i))
		} else {
			v.SetUint(uint64(i))
		}
		return nil
	}
	return fmt.Errorf("%q 不是 %s 的常量，可选值 %v", raw, v.Type(), names)
}

// parseDate 按 DateLayout 解析日期，并拼接当前时刻的时分秒
func (c Coercer) parseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if c.DateOnly {
		return d, nil
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	clock := now().In(time.Local)
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, time.Local), nil
}

// splitList 按逗号拆分默认值列表，去除每项首尾空白
func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
