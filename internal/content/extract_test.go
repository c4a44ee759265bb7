package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		head     string
		body     string
		hasBody  bool
		combined string
	}{
		{
			name:     "head and body",
			raw:      "<html><head><title>T</title></head><body><p>Hello</p></body></html>",
			head:     "<title>T</title>",
			body:     "<p>Hello</p>",
			hasBody:  true,
			combined: "<title>T</title>\n<p>Hello</p>",
		},
		{
			name:     "case insensitive with attributes",
			raw:      `<HTML><HEAD lang="en"><style>p{}</style></HEAD><Body class="x">Hi</BODY></HTML>`,
			head:     "<style>p{}</style>",
			body:     "Hi",
			hasBody:  true,
			combined: "<style>p{}</style>\nHi",
		},
		{
			name:     "multiline body",
			raw:      "<body>\n<h1>A</h1>\n<p>B</p>\n</body>",
			body:     "\n<h1>A</h1>\n<p>B</p>\n",
			hasBody:  true,
			combined: "\n\n<h1>A</h1>\n<p>B</p>\n",
		},
		{
			name:     "no body falls back to whole document",
			raw:      "<div>Hi</div>",
			body:     "<div>Hi</div>",
			combined: "\n<div>Hi</div>",
		},
		{
			name:     "head without body keeps whole document",
			raw:      "<head><title>T</title></head><p>x</p>",
			head:     "<title>T</title>",
			body:     "<head><title>T</title></head><p>x</p>",
			combined: "<title>T</title>\n<head><title>T</title></head><p>x</p>",
		},
		{
			name:     "first match wins",
			raw:      "<body>one</body><body>two</body>",
			body:     "one",
			hasBody:  true,
			combined: "\none",
		},
		{
			name:     "header element is not head",
			raw:      "<body><header>nav</header><p>x</p></body>",
			body:     "<header>nav</header><p>x</p>",
			hasBody:  true,
			combined: "\n<header>nav</header><p>x</p>",
		},
		{
			name:     "empty",
			raw:      "",
			combined: "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Extract(tt.raw)
			assert.Equal(t, tt.head, f.Head)
			assert.Equal(t, tt.body, f.Body)
			assert.Equal(t, tt.hasBody, f.HasBody)
			assert.Equal(t, tt.combined, f.String())
		})
	}
}
