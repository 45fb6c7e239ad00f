package bind233

import (
	"github.com/go-logr/logr"
)

// Logger 包内统一使用的 logr 日志类型
type Logger = logr.Logger

var globalLogger Logger

// SetLogger 替换之后创建的配置源和绑定器默认使用的日志
// 已创建的 Source 不受影响，需要时用 WithLogger 单独指定
//
//	bind233.SetLogger(zapr.NewLogger(zapLogger))
func SetLogger(logger Logger) {
	globalLogger = logger
}

// getLogger 未调用 SetLogger 时丢弃全部日志
func getLogger() Logger {
	if globalLogger.IsZero() {
		return logr.Discard()
	}
	return globalLogger
}
