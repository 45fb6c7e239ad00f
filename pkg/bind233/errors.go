package bind233

import (
	"errors"
	"fmt"
	"strings"
)

// 绑定与加载过程中的错误类别，使用 errors.Is 判断
var (
	// ErrConfigLoad 配置文档无法读取或解析
	ErrConfigLoad = errors.New("配置加载失败")

	// ErrMissingConfigPath 可绑定对象在绑定时没有路径
	ErrMissingConfigPath = errors.New("缺少配置路径")

	// ErrMissingRequiredPath 必填字段或子树在文档中不存在
	ErrMissingRequiredPath = errors.New("缺少必填路径")

	// ErrTypeCoercion 值无法转换为字段声明的类型
	ErrTypeCoercion = errors.New("类型转换失败")

	// ErrParserMethodNotFound 声明的解析方法不存在或签名不符
	ErrParserMethodNotFound = errors.New("解析方法不存在")

	// ErrSchemaInstantiation 嵌套对象或列表元素无法实例化
	ErrSchemaInstantiation = errors.New("无法实例化配置对象")

	// ErrInvalidSchema 结构体标签或字段类型不合法
	ErrInvalidSchema = errors.New("配置结构定义非法")
)

// BindError 绑定错误详情
// Kind 为上面的错误类别之一，Err 为底层原因（可为空）
type BindError struct {
	Kind  error
	Bean  string // 对象类型名
	Field string // 字段名
	Path  string // 文档路径
	Err   error
}

func (e *BindError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Bean != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Bean)
		if e.Field != "" {
			sb.WriteByte('.')
			sb.WriteString(e.Field)
		}
	}
	if e.Path != "" {
		fmt.Fprintf(&sb, " (路径 %q)", e.Path)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap 同时暴露错误类别和底层原因
func (e *BindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newBindError(kind error, bean, field, path string, cause error) *BindError {
	return &BindError{Kind: kind, Bean: bean, Field: field, Path: path, Err: cause}
}
