package sanitizer

import (
	"html"
	"io"
	"strings"

	xhtml "golang.org/x/net/html"
)

// rawTextElements are the allowed elements whose content the browser reads
// as text up to the matching end tag. Left open, they swallow the rest of
// the page; the other raw-text elements are on forbiddenElements.
var rawTextElements = map[string]struct{}{
	"style": {},
	"title": {},
}

// closeRawText terminates every raw-text element in markup. An unclosed
// element gets its end tag appended, and a self-closed one such as <style/>
// is written as an empty pair with the text the browser would have hidden
// inside it escaped. The tokenizer switches into raw-text mode on the same
// tags a browser does, so the result matches what the page will parse.
func closeRawText(markup string) string {
	if !strings.Contains(markup, "<") {
		return markup
	}

	z := xhtml.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	b.Grow(len(markup) + len("</style>"))

	var open, hidden string
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			if z.Err() != io.EOF {
				// Unreachable for a strings.Reader; keep what was read.
				b.Write(z.Raw())
			}
			break
		}
		// TagName and Text rewrite the buffer behind Raw.
		raw := string(z.Raw())

		switch tt {
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			if _, ok := rawTextElements[string(name)]; !ok {
				b.WriteString(raw)
				continue
			}
			if tt == xhtml.StartTagToken {
				open = string(name)
				b.WriteString(raw)
				continue
			}
			hidden = string(name)
			b.WriteString(strings.TrimSuffix(strings.TrimSuffix(raw, ">"), "/"))
			b.WriteString("></" + hidden + ">")

		case xhtml.TextToken:
			if hidden != "" {
				b.WriteString(html.EscapeString(string(z.Text())))
				continue
			}
			b.WriteString(raw)

		case xhtml.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case hidden:
				hidden = ""
			case open:
				open = ""
				b.WriteString(raw)
			default:
				b.WriteString(raw)
			}

		default:
			b.WriteString(raw)
		}
	}

	if open != "" {
		b.WriteString("</" + open + ">")
	}

	return b.String()
}
