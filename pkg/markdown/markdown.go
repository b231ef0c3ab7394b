// Package markdown converts user-authored markdown into sanitized HTML.
//
// Output only ever contains the tags listed in AllowedTags. Bare URLs are
// turned into nofollow links and :alias: emoji shortcodes are expanded.
package markdown

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var allowedTags = []string{
	"a", "abbr", "acronym", "b", "blockquote", "code", "em", "i",
	"li", "ol", "pre", "strong", "ul", "h1", "h2", "h3", "p",
}

// AllowedTags returns a copy of the tags that survive sanitizing.
func AllowedTags() []string {
	tags := make([]string, len(allowedTags))
	copy(tags, allowedTags)
	return tags
}

// Renderer is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a renderer. Raw HTML in the source is passed to the sanitizer,
// which strips everything outside the allow list but keeps the text.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Linkify,
			extension.Strikethrough,
			emoji.New(emoji.WithRenderingMethod(emoji.Unicode)),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	policy := bluemonday.NewPolicy()
	policy.AllowElements(allowedTags...)
	policy.AllowAttrs("href", "title").OnElements("a")
	policy.AllowAttrs("title").OnElements("abbr", "acronym")
	policy.AllowStandardURLs()
	policy.RequireNoFollowOnLinks(true)

	return &Renderer{md: md, policy: policy}
}

// Render converts src to sanitized HTML. Empty input renders to "".
func (r *Renderer) Render(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		// goldmark only fails on writer errors; fall back to escaped text.
		return r.policy.Sanitize(src)
	}
	return r.policy.Sanitize(buf.String())
}

var defaultRenderer = New()

// Render converts src with the package renderer.
func Render(src string) string {
	return defaultRenderer.Render(src)
}
