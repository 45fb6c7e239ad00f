// Package app bind233 命令行工具的命令实现
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neko233-com/bind233-go/internal/logging"
	"github.com/neko233-com/bind233-go/pkg/bind233"
)

// EnvPrefix 环境变量前缀，如 BIND233_VERBOSE
const EnvPrefix = "BIND233"

// cli 命令共享的配置与日志
type cli struct {
	v      *viper.Viper
	logger logr.Logger
	flush  func()
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	return newRootCmd(newCLI())
}

func newCLI() *cli {
	c := &cli{v: viper.New(), logger: logr.Discard(), flush: func() {}}
	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	return c
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "bind233",
		Short: "查看、修改、转换和监听层级配置文档",
		Long: `bind233 读取 xml / yaml / json / toml / tsv / xlsx / hcl 配置文档，
可以按路径读取或写入值、在格式之间转换，以及监听文件变化。

路径语法: a.b.c、a(1).b、[@attr]、a.b[@attr]`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.initLogger()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			c.flush()
		},
	}

	root.PersistentFlags().CountP("verbose", "v", "输出调试日志，可重复使用提高级别")
	root.PersistentFlags().Bool("json-log", false, "以 JSON 格式输出日志")
	root.PersistentFlags().Duration("interval", bind233.DefaultPollInterval, "监听时的轮询间隔")
	for _, name := range []string{"verbose", "json-log", "interval"} {
		if err := c.v.BindPFlag(name, root.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("绑定参数 %s 失败: %v", name, err))
		}
	}

	root.AddCommand(
		newDumpCmd(c),
		newGetCmd(c),
		newSetCmd(c),
		newConvertCmd(c),
		newWatchCmd(c),
	)
	return root
}

func (c *cli) initLogger() error {
	logger, flush, err := logging.New(logging.Options{
		Verbosity: c.v.GetInt("verbose"),
		JSON:      c.v.GetBool("json-log"),
	})
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	c.logger, c.flush = logger, flush
	bind233.SetLogger(logger)
	return nil
}

func (c *cli) interval() time.Duration {
	return c.v.GetDuration("interval")
}

// newSource 创建使用命令行日志和轮询间隔的配置源
func (c *cli) newSource() *bind233.Source {
	return bind233.NewSource().
		WithLogger(c.logger).
		PollInterval(c.interval())
}
