// Package view renders the site templates, both through gin and into bytes
// for the page store.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/spacetraveling/internal/locale"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options localizes template helpers.
type Options struct {
	Language string
	Location *time.Location
}

// Renderer holds the parsed template set.
type Renderer struct {
	tmpl *template.Template
}

// New parses every embedded template.
func New(opts Options) (*Renderer, error) {
	tmpl, err := template.New("site").Funcs(FuncMap(opts)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Template exposes the set for gin's HTML renderer.
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

// Render executes the named template into memory.
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("view: render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// FuncMap returns the helpers available to templates.
func FuncMap(opts Options) template.FuncMap {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return template.FuncMap{
		"formatDate": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return locale.FormatDate(t.In(loc), opts.Language)
		},
		"isoDate": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.In(loc).Format(time.RFC3339)
		},
		"icon": IconSVG,
	}
}
