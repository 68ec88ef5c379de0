package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CageChen/syntaxia/internal/render"
)

var renderHTMLOnly bool

var renderCmd = &cobra.Command{
	Use:   "render [path]",
	Short: "Render one path and print the result",
	Long: `Render a path relative to the root and print the result as JSON, the
same document GET /api/view/<path> returns. With --html only the rendered
fragment of a document is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		r, err := newRenderer(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		requested := ""
		if len(args) == 1 {
			requested = args[0]
		}
		res, err := r.RenderPath(cmd.Context(), requested)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if renderHTMLOnly {
			doc, ok := res.(*render.Rendered)
			if !ok {
				return fmt.Errorf("%s is a %s, not a document", requested, res.Type())
			}
			_, err = fmt.Fprintln(out, doc.HTML)
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderHTMLOnly, "html", false, "print only the HTML fragment")
}
