package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toolinger/toolinger/internal/client"
	"github.com/toolinger/toolinger/internal/registry"
	"github.com/toolinger/toolinger/internal/view"
)

var fetchRaw bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <file>",
	Short: "Fetch an article from a running server",
	Long: `Fetch a sanitized article from a running toolinger server and print it
as a themed HTML document, or as the raw fragment with --raw.

Examples:
  toolinger fetch home.html
  toolinger fetch home.html --server http://docs.internal:8080 --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("server", "", "Base URL of the toolinger server")
	fetchCmd.Flags().Duration("timeout", 0, "Request timeout")
	fetchCmd.Flags().BoolVar(&fetchRaw, "raw", false, "Print the fragment without the page shell")

	_ = viper.BindPFlag("client.base_url", fetchCmd.Flags().Lookup("server"))
	_ = viper.BindPFlag("client.timeout", fetchCmd.Flags().Lookup("timeout"))
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	file := args[0]
	c := client.NewClient(cfg.Client.BaseURL, cfg.Client.Timeout)
	r := client.NewRenderer(c, logger)
	defer r.Close()

	r.Load(cmd.Context(), file)
	// Client timeout plus slack for the response to be applied.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.Timeout+time.Second)
	defer cancel()
	state, err := r.Wait(ctx)
	if err != nil {
		return err
	}
	if state.Status == client.StatusError {
		return state.Err
	}

	out := cmd.OutOrStdout()
	if fetchRaw {
		_, err = fmt.Fprint(out, state.HTML)
		return err
	}

	page := view.Page(view.PageData{Title: registry.TitleFor(registry.SlugFor(file))}, r.Component())
	return page.Render(cmd.Context(), out)
}

