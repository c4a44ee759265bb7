package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/toolinger/toolinger/internal/config"
	apperrors "github.com/toolinger/toolinger/internal/errors"
	"github.com/toolinger/toolinger/internal/logging"
	"github.com/toolinger/toolinger/internal/registry"
	"github.com/toolinger/toolinger/internal/watcher"
)

func writeContent(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	}
	return root
}

func testSite(t *testing.T) string {
	return writeContent(t, map[string]string{
		"pages/home.html":           `<head><title>T</title></head><body><p>Hello</p><script>x()</script></body>`,
		"tools/json-formatter.html": `<body><h1>JSON</h1></body>`,
		"tools/notes.txt":           "not html",
	})
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigFilePath(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	assert.Equal(t, "flag.yml", configFilePath("flag.yml", "env.yml"))
	assert.Equal(t, "env.yml", configFilePath("", "env.yml"))
	assert.Empty(t, configFilePath("", ""))

	user := userConfigFile()
	require.NoError(t, os.MkdirAll(filepath.Dir(user), 0o755))
	require.NoError(t, os.WriteFile(user, []byte("log:\n  level: debug\n"), 0o600))
	assert.Equal(t, user, configFilePath("", ""))

	require.NoError(t, os.WriteFile(".toolinger.yml", []byte("{}\n"), 0o600))
	assert.Empty(t, configFilePath("", ""), "a project file beats the user config")
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("8080"))
	assert.NoError(t, ValidatePort("0"))
	assert.Error(t, ValidatePort("70000"))
	assert.Error(t, ValidatePort("http"))
}

func TestOutputFlagValidation(t *testing.T) {
	err := listCmd.Flags().Set("output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table, json, yaml")
	assert.Equal(t, "table", listFlags.OutputFormat)
}

func TestCollectEntries(t *testing.T) {
	cfg := &config.Config{Content: config.ContentConfig{Root: testSite(t)}}
	p, err := newPipeline(cfg, nil)
	require.NoError(t, err)

	entries, err := collectEntries(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byName := make(map[string]listEntry)
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, "pages", byName["home.html"].Namespace)
	assert.Empty(t, byName["home.html"].Tool)
	assert.Equal(t, "json-formatter", byName["json-formatter.html"].Tool)
	assert.Equal(t, "Json Formatter", byName["json-formatter.html"].Title)
	assert.Empty(t, byName["notes.txt"].Tool)
}

func TestWriteEntries(t *testing.T) {
	entries := []listEntry{
		{Name: "home.html", Namespace: "pages", Path: "pages/home.html"},
		{Name: "json.html", Namespace: "tools", Path: "tools/json.html", Tool: "json", Title: "Json"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, entries, "table"))
	assert.Contains(t, buf.String(), "NAMESPACE")
	assert.Contains(t, buf.String(), "tools/json.html")

	buf.Reset()
	require.NoError(t, writeEntries(&buf, entries, "json"))
	var fromJSON []listEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, entries, fromJSON)

	buf.Reset()
	require.NoError(t, writeEntries(&buf, entries, "yaml"))
	var fromYAML []listEntry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, entries, fromYAML)

	buf.Reset()
	require.NoError(t, writeEntries(&buf, nil, "table"))
	assert.Equal(t, "No content files found.\n", buf.String())

	assert.Error(t, writeEntries(&buf, entries, "xml"))
}

func TestContentChangeHandler(t *testing.T) {
	root := testSite(t)
	cfg := &config.Config{Content: config.ContentConfig{Root: root}}
	p, err := newPipeline(cfg, nil)
	require.NoError(t, err)

	tools := registry.New()
	require.NoError(t, registry.Sync(context.Background(), tools, p.locator, p.service))
	require.Equal(t, 1, tools.Count())

	require.NoError(t, os.WriteFile(filepath.Join(root, "tools", "counter.html"), []byte("<p>1</p>"), 0o644))

	handler := contentChangeHandler(tools, p, nil, logging.NewNopLogger())
	err = handler(context.Background(), []watcher.ChangeEvent{
		{Type: watcher.EventTypeCreated, Name: "counter.html", Namespace: "tools"},
	})
	require.NoError(t, err)

	_, ok := tools.Get("counter")
	assert.True(t, ok)
	assert.Equal(t, 2, tools.Count())
}

func TestRenderCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOOLINGER_CONTENT_ROOT", testSite(t))

	renderPage = false
	out, err := execute(t, "render", "home.html")
	require.NoError(t, err)
	assert.Equal(t, "<title>T</title>\n<p>Hello</p>", out)

	out, err = execute(t, "render", "home.html", "--page")
	renderPage = false
	require.NoError(t, err)
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, `data-file="home.html"`)

	_, err = execute(t, "render", "../../etc/passwd")
	assert.True(t, apperrors.IsValidation(err))

	_, err = execute(t, "render", "missing.html")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFetchCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("file") != "home.html" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"File not found"}`))
			return
		}
		_, _ = w.Write([]byte("<p>Hello</p>"))
	}))
	defer ts.Close()

	t.Chdir(t.TempDir())
	t.Setenv("TOOLINGER_CLIENT_BASE_URL", ts.URL)

	fetchRaw = false
	out, err := execute(t, "fetch", "home.html", "--raw")
	fetchRaw = false
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello</p>", out)

	out, err = execute(t, "fetch", "home.html")
	require.NoError(t, err)
	assert.Contains(t, out, "<style>")
	assert.Contains(t, out, `<article class="toolinger-article" id="article" data-file="home.html"><p>Hello</p></article>`)

	_, err = execute(t, "fetch", "other.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File not found")
}

func TestVersionCommand(t *testing.T) {
	versionFormat, versionShort = "text", false
	t.Cleanup(func() { versionFormat, versionShort = "text", false })

	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])

	versionFormat = "text"
	out, err = execute(t, "version", "--format", "text", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = execute(t, "version", "--format", "xml", "--short=false")
	assert.Error(t, err)
}
