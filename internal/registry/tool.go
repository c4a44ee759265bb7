package registry

import (
	"context"
	"path"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/toolinger/toolinger/internal/article"
	"github.com/toolinger/toolinger/internal/content"
	"github.com/toolinger/toolinger/internal/view"
)

// Tool is a renderable entry of the tool catalog.
type Tool interface {
	Slug() string
	Title() string
	Component(ctx context.Context) (templ.Component, error)
}

// Renderer produces sanitized article markup for a content file stored in
// one namespace.
type Renderer interface {
	RenderIn(ctx context.Context, ns content.Namespace, name string) (*article.Article, error)
}

// Lister lists content files.
type Lister interface {
	List(ctx context.Context) ([]content.File, error)
}

// ArticleTool is a tool whose page is an article from the tools namespace.
type ArticleTool struct {
	slug     string
	title    string
	file     string
	renderer Renderer
}

// NewArticleTool creates a tool backed by the content file name.
func NewArticleTool(file string, renderer Renderer) *ArticleTool {
	slug := SlugFor(file)
	return &ArticleTool{
		slug:     slug,
		title:    TitleFor(slug),
		file:     file,
		renderer: renderer,
	}
}

func (t *ArticleTool) Slug() string  { return t.slug }
func (t *ArticleTool) Title() string { return t.title }

// File returns the content file the tool renders.
func (t *ArticleTool) File() string { return t.file }

// Component renders the tools copy of the file fresh on every call. A page
// with the same name never shadows it.
func (t *ArticleTool) Component(ctx context.Context) (templ.Component, error) {
	art, err := t.renderer.RenderIn(ctx, content.NamespaceTools, t.file)
	if err != nil {
		return nil, err
	}
	return view.ToolArticle(t.file, art.HTML), nil
}

// NotFoundTool is returned by Resolve for unmapped slugs.
type NotFoundTool struct {
	slug string
}

func (t NotFoundTool) Slug() string  { return t.slug }
func (t NotFoundTool) Title() string { return "Tool not found" }

func (t NotFoundTool) Component(context.Context) (templ.Component, error) {
	return view.NotFound(t.slug), nil
}

// IsNotFound reports whether tool is the explicit not-found variant.
func IsNotFound(tool Tool) bool {
	_, ok := tool.(NotFoundTool)
	return ok
}

// SlugFor derives a tool slug from a content file name: "json-formatter.html"
// becomes "json-formatter".
func SlugFor(file string) string {
	return strings.ToLower(strings.TrimSuffix(file, path.Ext(file)))
}

// TitleFor turns a slug into a display title: "json-formatter" becomes
// "Json Formatter".
func TitleFor(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	// A Caser keeps state, so each call gets its own.
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func isToolFile(f content.File) bool {
	if f.Namespace != content.NamespaceTools {
		return false
	}
	switch strings.ToLower(path.Ext(f.Name)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}

// Sync makes the article-backed tools in r match the tools namespace. It
// registers new files, drops tools whose file disappeared and leaves other
// Tool implementations alone. When two files map to one slug the first in
// listing order wins.
func Sync(ctx context.Context, r *Registry, lister Lister, renderer Renderer) error {
	files, err := lister.List(ctx)
	if err != nil {
		return err
	}

	wanted := make(map[string]string)
	for _, f := range files {
		if !isToolFile(f) {
			continue
		}
		slug := SlugFor(f.Name)
		if _, dup := wanted[slug]; dup {
			continue
		}
		wanted[slug] = f.Name
	}

	for _, tool := range r.All() {
		at, ok := tool.(*ArticleTool)
		if !ok {
			continue
		}
		if file, keep := wanted[at.slug]; !keep || file != at.file {
			r.Remove(at.slug)
		}
	}

	for slug, file := range wanted {
		if existing, ok := r.Get(slug); ok {
			if at, isArticle := existing.(*ArticleTool); !isArticle || at.file == file {
				continue
			}
		}
		r.Register(NewArticleTool(file, renderer))
	}

	return nil
}
