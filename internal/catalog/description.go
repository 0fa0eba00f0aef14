package catalog

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	descriptionOnce   sync.Once
	descriptionMD     goldmark.Markdown
	descriptionPolicy *bluemonday.Policy

	descriptionCache sync.Map
)

func descriptionRenderer() (goldmark.Markdown, *bluemonday.Policy) {
	descriptionOnce.Do(func() {
		descriptionMD = goldmark.New()
		policy := bluemonday.NewPolicy()
		policy.AllowElements("p", "strong", "em", "br", "code")
		descriptionPolicy = policy
	})
	return descriptionMD, descriptionPolicy
}

// RenderDescription converts a Markdown product description into sanitized HTML.
// Descriptions that fail to render fall back to escaped text.
func RenderDescription(markdown string) template.HTML {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	if cached, ok := descriptionCache.Load(markdown); ok {
		return cached.(template.HTML)
	}

	md, policy := descriptionRenderer()
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(markdown))
	}
	out := template.HTML(strings.TrimSpace(policy.Sanitize(buf.String())))
	descriptionCache.Store(markdown, out)
	return out
}
