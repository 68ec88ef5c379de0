package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CageChen/syntaxia/internal/highlight"
)

var cssListThemes bool

var cssCmd = &cobra.Command{
	Use:   "css",
	Short: "Print the stylesheet for highlighted code",
	Long: `Print the CSS that colors highlighted token classes for the configured
theme, or for --theme. With --list the available themes are printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if cssListThemes {
			for _, name := range highlight.StyleNames() {
				if _, err := fmt.Fprintln(out, name); err != nil {
					return err
				}
			}
			return nil
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return highlight.WriteCSS(out, cfg.Theme)
	},
}

func init() {
	cssCmd.Flags().BoolVar(&cssListThemes, "list", false, "list available themes")
}
