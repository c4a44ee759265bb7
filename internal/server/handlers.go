package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/toolinger/toolinger/internal/errors"
	"github.com/toolinger/toolinger/internal/logging"
	"github.com/toolinger/toolinger/internal/registry"
	"github.com/toolinger/toolinger/internal/version"
	"github.com/toolinger/toolinger/internal/view"
)

// Client-facing error messages. Details stay in the server log.
const (
	msgMissingFile      = "Missing file parameter"
	msgInvalidFilename  = "Invalid filename"
	msgFileNotFound     = "File not found"
	msgServerError      = "Server error"
	msgMethodNotAllowed = "Method not allowed"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// publicError maps a pipeline error to its status and fixed message.
func publicError(err error) (int, string) {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest, msgInvalidFilename
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound, msgFileNotFound
	default:
		return http.StatusInternalServerError, msgServerError
	}
}

// clientGone reports whether err only means the client abandoned r. Such
// failures are logged at debug and get no response, since nobody is left to
// read one.
func (s *Server) clientGone(r *http.Request, err error, file string) bool {
	if r.Context().Err() == nil {
		return false
	}
	if !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	s.logger.Debug(r.Context(), "Client went away before the article was rendered",
		"file", logging.SanitizeForLog(file),
		"error", err.Error())
	return true
}

func (s *Server) logFailure(r *http.Request, err error, file string) {
	status, _ := publicError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "Article pipeline failed",
			"file", logging.SanitizeForLog(file),
			"path", r.URL.Path)
		return
	}
	s.logger.Debug(r.Context(), "Article request rejected",
		"file", logging.SanitizeForLog(file),
		"status", status)
}

// handleArticle serves GET /api/article?file=<name>.
func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSONError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	file := r.URL.Query().Get("file")
	if file == "" {
		writeJSONError(w, http.StatusBadRequest, msgMissingFile)
		return
	}

	art, err := s.articles.Render(r.Context(), file)
	if err != nil {
		if s.clientGone(r, err, file) {
			return
		}
		s.logFailure(r, err, file)
		status, msg := publicError(err)
		writeJSONError(w, status, msg)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(art.HTML)); err != nil {
		s.logger.Debug(r.Context(), "Client went away during write", "file", file, "error", err.Error())
	}
}

func (s *Server) page(title string, body templ.Component) templ.Component {
	return view.Page(view.PageData{Title: title, LiveReload: s.hub != nil}, body)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Cache-Control", "no-store")
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

// handlePage serves GET /pages/{file} as a full HTML document.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")

	art, err := s.articles.Render(r.Context(), file)
	if err != nil {
		if s.clientGone(r, err, file) {
			return
		}
		s.logFailure(r, err, file)
		status, msg := publicError(err)
		s.renderPage(w, r, status, s.page(msg, view.ErrorMessage(msg)))
		return
	}

	s.renderPage(w, r, http.StatusOK, s.page(registry.TitleFor(registry.SlugFor(file)), view.Article(file, art.HTML)))
}

// handleToolIndex serves GET /tools.
func (s *Server) handleToolIndex(w http.ResponseWriter, r *http.Request) {
	tools := s.tools.All()
	links := make([]view.ToolLink, 0, len(tools))
	for _, t := range tools {
		links = append(links, view.ToolLink{Slug: t.Slug(), Title: t.Title()})
	}
	s.renderPage(w, r, http.StatusOK, s.page("Tools", view.ToolIndex(links)))
}

// handleTool serves GET /tools/{slug}.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	tool := s.tools.Resolve(r.PathValue("slug"))

	status := http.StatusOK
	if registry.IsNotFound(tool) {
		status = http.StatusNotFound
	}

	body, err := tool.Component(r.Context())
	if err != nil {
		if s.clientGone(r, err, tool.Slug()) {
			return
		}
		s.logFailure(r, err, tool.Slug())
		var msg string
		status, msg = publicError(err)
		s.renderPage(w, r, status, s.page(msg, view.ErrorMessage(msg)))
		return
	}

	s.renderPage(w, r, status, s.page(tool.Title(), body))
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Tools     int       `json:"tools"`
	Clients   int       `json:"live_reload_clients"`
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Version:   version.Get().Short(),
		Timestamp: time.Now().UTC(),
		Tools:     s.tools.Count(),
	}
	if s.hub != nil {
		resp.Clients = s.hub.ClientCount()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}
