package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neko233-com/bind233-go/pkg/bind233/dto"
	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

func newDumpCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "输出配置树",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := c.newSource()
			if err := src.Load(args[0]); err != nil {
				return err
			}
			if !asJSON {
				_, err := fmt.Fprint(cmd.OutOrStdout(), src.Root().String())
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.FromDocument(src.Document()))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出配置树")
	return cmd
}

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get FILE PATH",
		Short: "按路径读取值，多个匹配时逐行输出",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := node.ParsePath(args[1])
			if err != nil {
				return err
			}
			src := c.newSource()
			if err := src.Load(args[0]); err != nil {
				return err
			}
			values := src.Root().Values(p)
			if len(values) == 0 {
				return fmt.Errorf("路径 %q 不存在", args[1])
			}
			for _, v := range values {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), v); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set FILE PATH VALUE",
		Short: "按路径写入值并保存文件",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := c.newSource()
			if err := src.LoadWith(args[0], false, true); err != nil {
				return err
			}
			return src.WriteProperty(args[1], args[2])
		},
	}
}

func newConvertCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "convert IN OUT",
		Short: "将配置转换为另一种格式，输出格式由扩展名决定",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := c.newSource()
			if err := src.Load(args[0]); err != nil {
				return err
			}
			if err := src.SetFile(args[1]); err != nil {
				return err
			}
			return src.Save()
		},
	}
}
