package registry

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolinger/toolinger/internal/article"
	"github.com/toolinger/toolinger/internal/content"
	apperrors "github.com/toolinger/toolinger/internal/errors"
	"github.com/toolinger/toolinger/internal/sanitizer"
)

type staticTool struct {
	slug string
}

func (s staticTool) Slug() string  { return s.slug }
func (s staticTool) Title() string { return "Static " + s.slug }

func (s staticTool) Component(context.Context) (templ.Component, error) {
	return templ.Raw("<p>static</p>"), nil
}

type fakeLister struct {
	files []content.File
	err   error
}

func (f *fakeLister) List(context.Context) ([]content.File, error) {
	return f.files, f.err
}

func toolFile(name string) content.File {
	return content.File{Name: name, Namespace: content.NamespaceTools, Path: "tools/" + name}
}

func renderTool(t *testing.T, tool Tool) string {
	t.Helper()
	c, err := tool.Component(context.Background())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := New()
	assert.Equal(t, 0, r.Count())

	r.Register(staticTool{slug: "b"})
	r.Register(staticTool{slug: "a"})

	tool, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Static a", tool.Title())
	assert.Equal(t, 2, r.Count())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Slug())
	assert.Equal(t, "b", all[1].Slug())

	r.Remove("a")
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Count())

	// Removing an unknown slug is a no-op.
	r.Remove("zzz")
	assert.Equal(t, 1, r.Count())
}

func TestRegistryResolve(t *testing.T) {
	r := New()
	r.Register(staticTool{slug: "known"})

	assert.False(t, IsNotFound(r.Resolve("known")))

	missing := r.Resolve("missing-tool")
	require.True(t, IsNotFound(missing))
	assert.Equal(t, "missing-tool", missing.Slug())
	assert.Contains(t, renderTool(t, missing), "Tool not found")
}

func TestRegistryWatch(t *testing.T) {
	r := New()
	events := r.Watch()

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Register(staticTool{slug: "x"})
		r.Register(staticTool{slug: "x"})
		r.Remove("x")
	}()

	for _, want := range []EventType{EventTypeAdded, EventTypeUpdated, EventTypeRemoved} {
		select {
		case ev := <-events:
			assert.Equal(t, want, ev.Type)
			assert.Equal(t, "x", ev.Tool.Slug())
		case <-time.After(time.Second):
			t.Fatalf("expected %s event", want)
		}
	}

	r.UnWatch(events)
	_, open := <-events
	assert.False(t, open)
}

func TestSlugAndTitle(t *testing.T) {
	tests := []struct {
		file  string
		slug  string
		title string
	}{
		{"json-formatter.html", "json-formatter", "Json Formatter"},
		{"word_counter.htm", "word_counter", "Word Counter"},
		{"Base64.html", "base64", "Base64"},
		{"qr-code-generator.html", "qr-code-generator", "Qr Code Generator"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.slug, SlugFor(tt.file))
			assert.Equal(t, tt.title, TitleFor(SlugFor(tt.file)))
		})
	}
}

func TestArticleToolRendersFreshContent(t *testing.T) {
	fsys := fstest.MapFS{
		"tools/counter.html": {Data: []byte(`<body><h1>Counter</h1><script>x()</script></body>`)},
	}
	svc := article.NewService(content.NewLocator(fsys), sanitizer.Default(), nil)

	tool := NewArticleTool("counter.html", svc)
	assert.Equal(t, "counter", tool.Slug())
	assert.Equal(t, "Counter", tool.Title())
	assert.Equal(t, "counter.html", tool.File())

	out := renderTool(t, tool)
	assert.Contains(t, out, "<h1>Counter</h1>")
	assert.NotContains(t, out, "<script")

	fsys["tools/counter.html"] = &fstest.MapFile{Data: []byte(`<body><h1>Updated</h1></body>`)}
	assert.Contains(t, renderTool(t, tool), "<h1>Updated</h1>")

	delete(fsys, "tools/counter.html")
	_, err := tool.Component(context.Background())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestArticleToolReadsToolsNamespace(t *testing.T) {
	fsys := fstest.MapFS{
		"pages/counter.html": {Data: []byte(`<body><p>PAGE copy</p></body>`)},
		"tools/counter.html": {Data: []byte(`<body><p>TOOL copy</p></body>`)},
	}
	loc := content.NewLocator(fsys)
	svc := article.NewService(loc, sanitizer.Default(), nil)

	r := New()
	require.NoError(t, Sync(context.Background(), r, loc, svc))

	tool := r.Resolve("counter")
	require.False(t, IsNotFound(tool))

	out := renderTool(t, tool)
	assert.Contains(t, out, "TOOL copy")
	assert.NotContains(t, out, "PAGE copy")
	assert.Contains(t, out, `data-namespace="tools"`)
}

func TestSync(t *testing.T) {
	r := New()
	r.Register(staticTool{slug: "custom"})

	lister := &fakeLister{files: []content.File{
		{Name: "home.html", Namespace: content.NamespacePages, Path: "pages/home.html"},
		toolFile("json-formatter.html"),
		toolFile("notes.txt"),
		toolFile("word-counter.html"),
	}}

	require.NoError(t, Sync(context.Background(), r, lister, nil))

	slugs := func() []string {
		var out []string
		for _, tool := range r.All() {
			out = append(out, tool.Slug())
		}
		return out
	}
	assert.Equal(t, []string{"custom", "json-formatter", "word-counter"}, slugs())

	lister.files = []content.File{toolFile("word-counter.html"), toolFile("base64.html")}
	require.NoError(t, Sync(context.Background(), r, lister, nil))
	assert.Equal(t, []string{"base64", "custom", "word-counter"}, slugs())

	lister.err = errors.New("disk gone")
	assert.EqualError(t, Sync(context.Background(), r, lister, nil), "disk gone")
	assert.Len(t, r.All(), 3)
}

func TestSyncDuplicateSlugs(t *testing.T) {
	r := New()
	lister := &fakeLister{files: []content.File{toolFile("dup.htm"), toolFile("dup.html")}}

	require.NoError(t, Sync(context.Background(), r, lister, nil))

	tool, ok := r.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "dup.htm", tool.(*ArticleTool).File())
}
