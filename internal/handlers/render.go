package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/httpx"
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/requestctx"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const baseTemplate = "templates/base.tmpl"

var pageTemplates = []string{"landing", "products"}

// Renderer executes the embedded page templates inside the shared base layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page against the base layout once.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"now": time.Now,
	}
	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tmpl, err := template.New(name).Funcs(funcMap).ParseFS(templateFS, baseTemplate, "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes page with data. Output is buffered so a template failure yields a clean 500.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, page string, data any) {
	tmpl, ok := rd.pages[page]
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("template_missing", fmt.Sprintf("template %s not found", page), http.StatusInternalServerError))
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		requestctx.Logger(r.Context()).Error("template exec failed", zap.String("template", page), zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("render_failed", "failed to render page", http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
