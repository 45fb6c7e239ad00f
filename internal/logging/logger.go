// Package logging 命令行工具使用的日志实现
// 基于 zap 的彩色控制台输出，通过 zapr 适配为 logr.Logger 注入 bind233
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志选项
type Options struct {
	// Verbosity logr 的 V 级别上限，0 只输出 Info，1 以上输出调试日志
	Verbosity int
	// JSON 是否输出 JSON 格式，默认为彩色控制台格式
	JSON bool
	// Output 输出路径，默认为 stderr
	Output []string
}

// New 创建 logr.Logger
// 返回值:
//
//	logr.Logger: 可传给 bind233.SetLogger 的日志
//	func(): 退出前调用，刷新缓冲
//	error: zap 构建失败
func New(opts Options) (logr.Logger, func(), error) {
	core, err := newZap(opts)
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	return zapr.NewLogger(core), func() { _ = core.Sync() }, nil
}

func newZap(opts Options) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-opts.Verbosity))
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	if opts.JSON {
		cfg.Encoding = "json"
		cfg.EncoderConfig = zap.NewProductionEncoderConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if len(opts.Output) > 0 {
		cfg.OutputPaths = opts.Output
		cfg.ErrorOutputPaths = opts.Output
	}
	return cfg.Build(zap.WithCaller(false))
}
