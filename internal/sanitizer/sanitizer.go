// Package sanitizer is the allow-list filter between stored article markup
// and the browser.
//
// The policy starts from bluemonday's user-generated-content defaults and adds
// the elements and attributes rich articles need: layout containers,
// figures, inline style blocks, and a handful of global and image
// attributes. Anything not on the list is dropped. Script elements lose
// both tag and content, and event-handler attributes and javascript: URLs
// never survive.
package sanitizer

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/toolinger/toolinger/internal/config"
	"github.com/toolinger/toolinger/internal/errors"
)

// forbiddenElements can never be added to the allow-list.
var forbiddenElements = map[string]struct{}{
	"script":   {},
	"iframe":   {},
	"object":   {},
	"embed":    {},
	"form":     {},
	"input":    {},
	"button":   {},
	"textarea": {},
	"select":   {},
	"base":     {},
	"meta":     {},
	"link":     {},
	"frame":    {},
	"frameset": {},

	// Raw-text elements that cannot be closed reliably.
	"noscript":  {},
	"noembed":   {},
	"noframes":  {},
	"plaintext": {},
	"xmp":       {},
}

// Options extends the default safe set.
type Options struct {
	ExtraElements    []string
	GlobalAttributes []string
	ImageAttributes  []string
}

// DefaultOptions returns the allow-list extensions used for articles.
func DefaultOptions() Options {
	return Options{
		ExtraElements:    []string{"div", "figure", "figcaption", "picture", "style", "title"},
		GlobalAttributes: []string{"class", "style", "id"},
		ImageAttributes:  []string{"src", "alt", "style", "width", "height", "loading"},
	}
}

// OptionsFromConfig returns the defaults extended with the configured names.
func OptionsFromConfig(cfg config.SanitizerConfig) Options {
	opts := DefaultOptions()
	opts.ExtraElements = union(opts.ExtraElements, cfg.ExtraElements)
	opts.GlobalAttributes = union(opts.GlobalAttributes, cfg.GlobalAttributes)
	opts.ImageAttributes = union(opts.ImageAttributes, cfg.ImageAttributes)
	return opts
}

// Validate fails closed on any option that would let active content through.
func (o Options) Validate() error {
	for _, el := range o.ExtraElements {
		name := strings.ToLower(strings.TrimSpace(el))
		if name == "" {
			return errors.NewConfigError(errors.ErrCodeConfigInvalid, "empty element name in sanitizer allow-list")
		}
		if _, bad := forbiddenElements[name]; bad {
			return errors.NewConfigError(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("element %q cannot be allowed", name)).WithContext("element", name)
		}
	}

	attrs := append(append([]string{}, o.GlobalAttributes...), o.ImageAttributes...)
	for _, attr := range attrs {
		name := strings.ToLower(strings.TrimSpace(attr))
		if name == "" {
			return errors.NewConfigError(errors.ErrCodeConfigInvalid, "empty attribute name in sanitizer allow-list")
		}
		if strings.HasPrefix(name, "on") {
			return errors.NewConfigError(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("event handler attribute %q cannot be allowed", name)).WithContext("attribute", name)
		}
	}

	return nil
}

// Sanitizer filters markup against a fixed policy. It is safe for
// concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New builds a sanitizer from opts.
func New(opts Options) (*Sanitizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	p := bluemonday.UGCPolicy()

	// Inline <style> blocks are dropped by bluemonday unless the policy opts
	// in. Script stays off the list, so its content is still skipped.
	p.AllowUnsafe(true)

	if len(opts.ExtraElements) > 0 {
		p.AllowElements(lower(opts.ExtraElements)...)
		p.AllowNoAttrs().OnElements(lower(opts.ExtraElements)...)
	}
	if len(opts.GlobalAttributes) > 0 {
		p.AllowAttrs(lower(opts.GlobalAttributes)...).Globally()
	}
	if len(opts.ImageAttributes) > 0 {
		p.AllowAttrs(lower(opts.ImageAttributes)...).OnElements("img")
	}

	return &Sanitizer{policy: p}, nil
}

// Default returns a sanitizer built from DefaultOptions.
func Default() *Sanitizer {
	s, err := New(DefaultOptions())
	if err != nil {
		panic(err)
	}
	return s
}

// Sanitize returns fragment with every disallowed element and attribute
// removed and every style or title element terminated, so the result can be
// embedded in a page without swallowing the markup that follows it.
func (s *Sanitizer) Sanitize(fragment string) string {
	return closeRawText(s.policy.Sanitize(fragment))
}

// SanitizeBytes is Sanitize for byte slices.
func (s *Sanitizer) SanitizeBytes(fragment []byte) []byte {
	return []byte(s.Sanitize(string(fragment)))
}

func lower(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.ToLower(strings.TrimSpace(n)))
	}
	return out
}

func union(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, n := range list {
			key := strings.ToLower(strings.TrimSpace(n))
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}
