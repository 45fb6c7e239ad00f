// Package main bind233 命令行工具入口
package main

import (
	"os"

	"github.com/neko233-com/bind233-go/cmd/bind233/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
