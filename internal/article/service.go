// Package article runs the content pipeline: locate and read a content file,
// extract its head and body fragments, and sanitize the result.
package article

import (
	"context"
	"fmt"

	"github.com/toolinger/toolinger/internal/content"
	"github.com/toolinger/toolinger/internal/errors"
	"github.com/toolinger/toolinger/internal/logging"
)

// Reader reads raw content documents by bare file name, either by
// namespace precedence or from one namespace.
type Reader interface {
	Read(ctx context.Context, name string) (*content.Document, error)
	ReadIn(ctx context.Context, ns content.Namespace, name string) (*content.Document, error)
}

// Sanitizer filters extracted markup.
type Sanitizer interface {
	Sanitize(fragment string) string
}

// Article is the sanitized markup of one content file.
type Article struct {
	Name      string
	Namespace content.Namespace
	HTML      string
}

// Service composes the pipeline stages. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	reader    Reader
	sanitizer Sanitizer
	logger    logging.Logger
}

// NewService creates a pipeline over reader and sanitizer.
func NewService(reader Reader, sanitizer Sanitizer, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		reader:    reader,
		sanitizer: sanitizer,
		logger:    logger.WithComponent("article"),
	}
}

// Render returns the sanitized article for name. Validation, not-found and
// I/O errors keep their type; a panic in extraction or sanitization is
// reported as an internal error.
func (s *Service) Render(ctx context.Context, name string) (*Article, error) {
	doc, err := s.reader.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, doc)
}

// RenderIn is Render for the copy of name stored in ns.
func (s *Service) RenderIn(ctx context.Context, ns content.Namespace, name string) (*Article, error) {
	doc, err := s.reader.ReadIn(ctx, ns, name)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, doc)
}

func (s *Service) render(ctx context.Context, doc *content.Document) (art *Article, err error) {
	name := doc.File.Name

	defer func() {
		if r := recover(); r != nil {
			art = nil
			err = errors.WrapInternal(fmt.Errorf("panic: %v", r), errors.ErrCodeRenderFailed,
				"failed to render "+doc.File.Path).WithContext("file", name)
		}
	}()

	fragment := content.Extract(doc.Raw)
	if !fragment.HasBody {
		s.logger.Debug(ctx, "No body element, using whole document", "file", doc.File.Path)
	}

	html := s.sanitizer.Sanitize(fragment.String())

	s.logger.Debug(ctx, "Rendered article",
		"file", doc.File.Path,
		"raw_bytes", len(doc.Raw),
		"html_bytes", len(html))

	return &Article{
		Name:      name,
		Namespace: doc.File.Namespace,
		HTML:      html,
	}, nil
}
