package app

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neko233-com/bind233-go/pkg/bind233"
	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// watchedValue 绑定到命令行指定路径的配置对象，每次绑定后输出当前值
type watchedValue struct {
	bind233.Base
	path string
	attr string
	out  io.Writer
}

func (w *watchedValue) ConfigPath() string {
	return w.path
}

func (w *watchedValue) AfterBind() error {
	value := w.Node().Text
	if w.attr != "" {
		value, _ = w.Node().Attr(w.attr)
	}
	_, err := fmt.Fprintf(w.out, "%s = %s\n", w.path, value)
	return err
}

// reloadReporter 将后台重载失败输出到错误流
type reloadReporter struct {
	out io.Writer
}

func (r *reloadReporter) OnConfigLoadComplete(string) {}

func (r *reloadReporter) OnConfigReloadFailed(file string, err error) {
	_, _ = fmt.Fprintf(r.out, "重载 %s 失败，保留上一次的配置: %v\n", file, err)
}

func newWatchCmd(c *cli) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "监听配置文件，内容变化时输出指定路径的值",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := node.ParsePath(path)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			src := c.newSource().AddListener(&reloadReporter{out: cmd.ErrOrStderr()})
			value := &watchedValue{path: path, attr: p.Attr(), out: cmd.OutOrStdout()}
			if err := src.Register(value); err != nil {
				return err
			}
			if err := src.Load(args[0]); err != nil {
				return err
			}
			if err := src.StartWatching(ctx); err != nil {
				return err
			}
			defer func() {
				_ = src.StopWatching()
			}()

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "要输出的路径")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}
