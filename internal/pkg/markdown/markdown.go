// Package markdown renders stop notes to the small HTML subset the map
// popups accept.
package markdown

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML is let through goldmark on purpose: the policy below strips every
// tag outside the allow-list and keeps its text.
var renderer = goldmark.New(
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithUnsafe(),
	),
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("strong", "em", "ul", "ol", "li", "p", "br")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowAttrs("href", "target").OnElements("a")
	return p
}

// Render converts markdown to sanitized HTML. Line breaks inside a paragraph
// become <br>. Empty input renders as the empty string.
func Render(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var b bytes.Buffer
	if err := renderer.Convert([]byte(src), &b); err != nil {
		return policy.Sanitize(src)
	}
	return strings.TrimSpace(policy.Sanitize(b.String()))
}
