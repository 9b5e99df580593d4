// Package render turns agent markdown into HTML that is safe to embed in the
// chat page.
package render

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer converts markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
}

// New creates a Renderer using the bluemonday UGC policy.
func New() *Renderer {
	return &Renderer{policy: bluemonday.UGCPolicy()}
}

// HTML renders md. Raw HTML in the input is stripped by the policy.
func (r *Renderer) HTML(md string) string {
	if md == "" {
		return ""
	}
	// parsers keep state between calls, so each render gets its own
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return string(r.policy.SanitizeBytes(markdown.Render(doc, renderer)))
}
