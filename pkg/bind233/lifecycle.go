package bind233

// AfterBinder 绑定完成回调
// 实现此接口的配置对象在字段、后注入对象和列表元素绑定完成后被调用
// 可以在这里通过 Node() 手工读取值、建立索引或校验数据
type AfterBinder interface {
	// AfterBind 返回错误时整个绑定失败
	AfterBind() error
}
