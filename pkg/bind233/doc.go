// Package bind233 将层级配置文档绑定到强类型的 Go 配置对象
//
// 配置对象通过嵌入 Base 声明自身路径，通过结构体标签声明字段路径：
//
//	type ChildConfig struct {
//		bind233.Base
//		PropertyX string `bind233:"PropertyX"`
//		PropertyY bool   `bind233:"PropertyY" default:"false"`
//	}
//
//	type ParentConfig struct {
//		bind233.Base `bind233:"ParentConfig"`
//		PropertyA bool         `bind233:"PropertyA"`
//		LastRun   string       `bind233:"lastRun"`
//		Child     *ChildConfig `bind233:"ChildConfig"`
//	}
//
//	parent := &ParentConfig{}
//	src := bind233.NewSource()
//	_ = src.Register(parent)
//	err := src.Load("config.xml")
//
// 标签:
//   - bind233:"path" 字段路径，语法为 a.b.c、a(1)、[@attr]、a.b[@attr]
//   - default:"literal" 路径不存在时使用的默认值；没有该标签的字段为必填
//   - default:"null" 路径不存在时字段置为零值或 nil
//   - parser:"Method" 将文本交给对象上的 func(string) 或 func(string) error 方法处理
//
// 嵌套对象字段（指针、结构体值或包含 Configurable 的接口）会被递归绑定，
// 同类对象的列表使用 List。配置源 Source 负责加载、重载、写回和文件监听。
//
// 日期字段按 "01/02/2006" 解析，并默认拼接当前时刻的时分秒，
// 使用 Source.DateOnly 或 BindDateOnly 可以关闭拼接。
package bind233
