// Package render renders HTML pages from embedded templates.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
)

// UsersTemplate is the template id of the user listing page.
const UsersTemplate = "users.html"

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a data context into page text.
type Renderer interface {
	Render(ctx context.Context, name string, data any) (string, error)
}

// TemplateRenderer renders html/template templates.
type TemplateRenderer struct {
	templates *template.Template
}

// New parses the embedded templates.
func New() (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// NewFromTemplate wraps already parsed templates.
func NewFromTemplate(tmpl *template.Template) *TemplateRenderer {
	return &TemplateRenderer{templates: tmpl}
}

// Render executes template name with data. Output is buffered so a failed
// render never yields partial text.
func (r *TemplateRenderer) Render(ctx context.Context, name string, data any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmpl := r.templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %q: %w", name, err)
	}

	return buf.String(), nil
}
