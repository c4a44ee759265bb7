// Package view holds the server-rendered components shared by the HTTP
// pages, the tool registry and the client renderer. Components are built on
// templ.Component so handlers can serve them with templ.Handler.
package view

import (
	"context"
	"embed"
	"io"
	"io/fs"
	"strings"

	"github.com/a-h/templ"
)

//go:embed static
var staticFiles embed.FS

// Static returns the embedded stylesheet and page scripts, rooted so that
// "theme.css" and "live.js" sit at the top level.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// ThemeStylesheet returns the fixed theme applied to article markup.
func ThemeStylesheet() string {
	data, err := staticFiles.ReadFile("static/theme.css")
	if err != nil {
		panic(err)
	}
	return string(data)
}

func writeAll(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Stylesheet renders the theme as an inline style block.
func Stylesheet() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return writeAll(w, "<style>", ThemeStylesheet(), "</style>")
	})
}

// Article wraps pre-sanitized markup in the themed container. html is
// written unescaped and must come from the sanitizer.
func Article(file, html string) templ.Component {
	return article(file, "", html)
}

// ToolArticle is Article for a file pinned to the tools namespace. The page
// script reloads the tool page instead of re-fetching by bare name, which
// would resolve to a same-named page first.
func ToolArticle(file, html string) templ.Component {
	return article(file, "tools", html)
}

func article(file, namespace, html string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		attrs := `<article class="toolinger-article" id="article" data-file="` + templ.EscapeString(file) + `"`
		if namespace != "" {
			attrs += ` data-namespace="` + templ.EscapeString(namespace) + `"`
		}
		if err := writeAll(w, attrs, ">"); err != nil {
			return err
		}
		if err := templ.Raw(html).Render(ctx, w); err != nil {
			return err
		}
		return writeAll(w, "</article>")
	})
}

// ErrorMessage renders an inline error notice.
func ErrorMessage(msg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return writeAll(w, `<div class="toolinger-error" role="alert">`, templ.EscapeString(msg), "</div>")
	})
}

// Loading renders the placeholder shown while an article is fetched.
func Loading() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return writeAll(w, `<div class="toolinger-loading" aria-busy="true">Loading...</div>`)
	})
}

// NotFound renders the page for an unmapped tool slug.
func NotFound(slug string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return writeAll(w,
			`<section class="toolinger-article toolinger-not-found">`,
			`<h1>Tool not found</h1>`,
			`<p>No tool is registered for &#34;`, templ.EscapeString(slug), `&#34;.</p>`,
			`<p><a href="/tools">Browse all tools</a></p>`,
			`</section>`)
	})
}

// ToolLink is one entry of the tool index.
type ToolLink struct {
	Slug  string
	Title string
}

// ToolIndex renders the list of registered tools.
func ToolIndex(links []ToolLink) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeAll(w, `<section class="toolinger-article"><h1>Tools</h1>`); err != nil {
			return err
		}
		if len(links) == 0 {
			return writeAll(w, `<p>No tools are available yet.</p></section>`)
		}
		var b strings.Builder
		b.WriteString("<ul>")
		for _, l := range links {
			b.WriteString(`<li><a href="/tools/`)
			b.WriteString(templ.EscapeString(l.Slug))
			b.WriteString(`">`)
			b.WriteString(templ.EscapeString(l.Title))
			b.WriteString("</a></li>")
		}
		b.WriteString("</ul></section>")
		return writeAll(w, b.String())
	})
}

// PageData configures the document shell.
type PageData struct {
	Title string
	// LiveReload adds the script that re-fetches the article on change.
	LiveReload bool
}

// Page renders a complete HTML document around body.
func Page(data PageData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := data.Title
		if title == "" {
			title = "Toolinger"
		}
		if err := writeAll(w,
			"<!DOCTYPE html>\n",
			`<html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			"<title>", templ.EscapeString(title), "</title>",
			`<link rel="stylesheet" href="/static/theme.css">`,
			"</head><body><main>"); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		if err := writeAll(w, "</main>"); err != nil {
			return err
		}
		if data.LiveReload {
			if err := writeAll(w, `<script src="/static/live.js" defer></script>`); err != nil {
				return err
			}
		}
		return writeAll(w, "</body></html>")
	})
}
