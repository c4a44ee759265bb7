package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/toolinger/toolinger/internal/config"
	"github.com/toolinger/toolinger/internal/content"
	"github.com/toolinger/toolinger/internal/logging"
	"github.com/toolinger/toolinger/internal/registry"
	"github.com/toolinger/toolinger/internal/server"
	"github.com/toolinger/toolinger/internal/watcher"
	"github.com/toolinger/toolinger/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the article server",
	Long: `Start the HTTP server that delivers sanitized articles.

Routes:
  /api/article?file=<name>   sanitized article markup
  /pages/<name>              article inside the themed page shell
  /tools, /tools/<slug>      tool catalog backed by the tools/ namespace
  /health                    health check

Examples:
  toolinger serve                        # Serve ./content on localhost:8080
  toolinger serve -p 3000 --live-reload  # Reload open pages when files change
  toolinger serve --content-root /srv/site`,
	RunE: runServe,
}

var serveFlags *StandardFlags

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags = AddStandardFlags(serveCmd, "server")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("development.live_reload", serveCmd.Flags().Lookup("live-reload"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// serve runs the HTTP server and the content watcher until ctx is done or
// one of them fails.
func serve(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build sanitizer: %w", err)
	}

	tools := registry.New()
	if err := registry.Sync(ctx, tools, p.locator, p.service); err != nil {
		return fmt.Errorf("failed to load tools: %w", err)
	}
	logger.Info(ctx, "Loaded tools", "count", tools.Count(), "root", cfg.Content.Root)

	var hub *websocket.Hub
	if cfg.Development.LiveReload {
		hub = websocket.NewHub(cfg.Server.AllowedOrigins, logger)
	}

	srv := server.New(server.Options{
		Config:   cfg,
		Articles: p.service,
		Tools:    tools,
		Hub:      hub,
		Logger:   logger,
	})

	w, err := watcher.New(cfg.Content.Root, cfg.Development.Debounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create content watcher: %w", err)
	}
	w.AddHandler(contentChangeHandler(tools, p, hub, logger))

	fmt.Fprintf(os.Stderr, "Serving %s at http://%s\n", cfg.Content.Root, cfg.Server.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		if err := w.Run(gctx); err != nil {
			// The server keeps running without change tracking.
			logger.Warn(gctx, err, "Content watcher stopped, tools will not refresh")
		}
		return nil
	})

	return g.Wait()
}

// contentChangeHandler resyncs the tool registry when tools change and asks
// open pages to re-fetch changed files.
func contentChangeHandler(tools *registry.Registry, p *pipeline, hub *websocket.Hub, logger logging.Logger) watcher.ChangeHandler {
	return func(ctx context.Context, events []watcher.ChangeEvent) error {
		resync := false
		for _, ev := range events {
			logger.Debug(ctx, "Content changed", "file", ev.Name, "namespace", string(ev.Namespace), "type", ev.Type.String())
			if ev.Namespace == content.NamespaceTools {
				resync = true
			}
			if hub != nil {
				if err := hub.NotifyContentChanged(ev.Name); err != nil {
					return err
				}
			}
		}

		if resync {
			return registry.Sync(ctx, tools, p.locator, p.service)
		}
		return nil
	}
}
