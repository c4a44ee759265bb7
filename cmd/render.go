package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolinger/toolinger/internal/registry"
	"github.com/toolinger/toolinger/internal/view"
)

var renderPage bool

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Print the sanitized markup of a content file",
	Long: `Run the local content pipeline (locate, extract, sanitize) for one file
and print the result, exactly as /api/article would deliver it.

Examples:
  toolinger render home.html          # Sanitized fragment
  toolinger render home.html --page   # Full themed HTML document`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().BoolVar(&renderPage, "page", false, "Wrap the article in the themed page shell")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	file := args[0]
	art, err := p.service.Render(cmd.Context(), file)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !renderPage {
		_, err = fmt.Fprint(out, art.HTML)
		return err
	}

	page := view.Page(view.PageData{Title: registry.TitleFor(registry.SlugFor(file))},
		view.Article(file, art.HTML))
	return page.Render(cmd.Context(), out)
}
