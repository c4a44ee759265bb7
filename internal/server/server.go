// Package server exposes the article pipeline over HTTP: the JSON-erroring
// /api/article endpoint, server-rendered article and tool pages, a health
// check and the optional live-reload websocket.
package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/toolinger/toolinger/internal/article"
	"github.com/toolinger/toolinger/internal/config"
	"github.com/toolinger/toolinger/internal/logging"
	"github.com/toolinger/toolinger/internal/registry"
	"github.com/toolinger/toolinger/internal/view"
	"github.com/toolinger/toolinger/internal/websocket"
)

// ArticleRenderer runs the content pipeline for one file name.
type ArticleRenderer interface {
	Render(ctx context.Context, name string) (*article.Article, error)
}

// Options are the server's collaborators. Hub is nil when live reload is off.
type Options struct {
	Config   *config.Config
	Articles ArticleRenderer
	Tools    *registry.Registry
	Hub      *websocket.Hub
	Logger   logging.Logger
}

// Server is the toolinger HTTP server.
type Server struct {
	cfg        *config.Config
	articles   ArticleRenderer
	tools      *registry.Registry
	hub        *websocket.Hub
	limiter    *ClientRateLimiter
	logger     logging.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New wires routes and middleware.
func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	tools := opts.Tools
	if tools == nil {
		tools = registry.New()
	}

	s := &Server{
		cfg:      cfg,
		articles: opts.Articles,
		tools:    tools,
		hub:      opts.Hub,
		logger:   logger.WithComponent("server"),
	}

	if cfg.RateLimit.Enabled {
		s.limiter = NewClientRateLimiter(cfg.RateLimit.RequestsPerMinute, s.logger)
	}

	s.handler = Chain(s.routes(),
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		SecurityMiddleware(SecurityConfigFromAppConfig(cfg)),
	)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	var api http.Handler = http.HandlerFunc(s.handleArticle)
	if s.limiter != nil {
		api = s.limiter.Middleware(api)
	}
	// Registered without a method so non-GET requests get the JSON 405.
	mux.Handle("/api/article", api)

	mux.HandleFunc("GET /pages/{file}", s.handlePage)
	mux.HandleFunc("GET /tools", s.handleToolIndex)
	mux.HandleFunc("GET /tools/{slug}", s.handleTool)
	mux.HandleFunc("GET /{$}", s.handleToolIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(view.Static())))

	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}

	return mux
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.limiter != nil {
		limiterCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go s.limiter.Run(limiterCtx)
	}

	s.logger.Info(ctx, "Server listening", "addr", displayAddr(ln.Addr()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info(shutdownCtx, "Shutting down server")

	// Hijacked websocket connections are not tracked by http.Server.
	if s.hub != nil {
		if err := s.hub.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Live reload hub did not stop cleanly")
		}
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh

	return nil
}

func displayAddr(addr net.Addr) string {
	a := addr.String()
	if strings.HasPrefix(a, "[::]:") {
		return "localhost" + strings.TrimPrefix(a, "[::]")
	}
	return a
}
