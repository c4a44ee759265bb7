package content

import "regexp"

var (
	headPattern = regexp.MustCompile(`(?is)<head(?:\s[^>]*)?>(.*?)</head\s*>`)
	bodyPattern = regexp.MustCompile(`(?is)<body(?:\s[^>]*)?>(.*?)</body\s*>`)
)

// Fragment holds the inner head and body markup of a raw document.
type Fragment struct {
	Head string
	Body string
	// HasBody is false when the document had no body element and Body holds
	// the whole raw document.
	HasBody bool
}

// String joins the head and body with a single newline.
func (f Fragment) String() string {
	return f.Head + "\n" + f.Body
}

// Extract pulls the inner contents of the first head and body elements out
// of raw. Matching is case-insensitive and non-greedy, so nested or
// unbalanced tags resolve to the first closing tag. This is not an HTML
// parser; it is meant for pre-authored article files.
func Extract(raw string) Fragment {
	var f Fragment

	if m := headPattern.FindStringSubmatch(raw); m != nil {
		f.Head = m[1]
	}

	if m := bodyPattern.FindStringSubmatch(raw); m != nil {
		f.Body = m[1]
		f.HasBody = true
	} else {
		f.Body = raw
	}

	return f
}
