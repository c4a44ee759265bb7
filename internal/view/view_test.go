package view

import (
	"bytes"
	"context"
	"io/fs"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestThemeStylesheet(t *testing.T) {
	css := ThemeStylesheet()
	for _, selector := range []string{"h1", "p", "ul", "img", "a", "@media"} {
		assert.Contains(t, css, selector)
	}
	assert.Equal(t, "<style>"+css+"</style>", render(t, Stylesheet()))
}

func TestArticleWritesMarkupUnescaped(t *testing.T) {
	out := render(t, Article(`a"b.html`, "<p>Hello</p>"))
	assert.Equal(t, `<article class="toolinger-article" id="article" data-file="a&#34;b.html"><p>Hello</p></article>`, out)
}

func TestToolArticleMarksNamespace(t *testing.T) {
	out := render(t, ToolArticle("counter.html", "<p>c</p>"))
	assert.Equal(t, `<article class="toolinger-article" id="article" data-file="counter.html" data-namespace="tools"><p>c</p></article>`, out)
}

func TestErrorMessageEscapes(t *testing.T) {
	out := render(t, ErrorMessage("<script>x</script>"))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `role="alert"`)
}

func TestNotFound(t *testing.T) {
	out := render(t, NotFound("<b>"))
	assert.Contains(t, out, "Tool not found")
	assert.Contains(t, out, "&lt;b&gt;")
}

func TestToolIndex(t *testing.T) {
	assert.Contains(t, render(t, ToolIndex(nil)), "No tools are available yet.")

	out := render(t, ToolIndex([]ToolLink{{Slug: "json-formatter", Title: "Json Formatter"}}))
	assert.Contains(t, out, `<a href="/tools/json-formatter">Json Formatter</a>`)
}

func TestPage(t *testing.T) {
	out := render(t, Page(PageData{Title: "Home"}, Article("home.html", "<p>x</p>")))
	assert.Contains(t, out, "<title>Home</title>")
	assert.Contains(t, out, `href="/static/theme.css"`)
	assert.Contains(t, out, "<p>x</p>")
	assert.NotContains(t, out, "live.js")

	out = render(t, Page(PageData{LiveReload: true}, nil))
	assert.Contains(t, out, "<title>Toolinger</title>")
	assert.Contains(t, out, `/static/live.js`)
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"theme.css", "live.js"} {
		_, err := fs.Stat(Static(), name)
		assert.NoError(t, err, name)
	}
}

func TestLiveScriptReportsFailures(t *testing.T) {
	data, err := fs.ReadFile(Static(), "live.js")
	require.NoError(t, err)
	script := string(data)

	assert.NotContains(t, script, ".catch(function () {})")
	assert.Contains(t, script, "console.error")
	assert.Contains(t, script, "toolinger-error")
	assert.Contains(t, script, `"data-namespace"`)
}
