package web

import (
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer is a custom html/template renderer for Echo framework
type TemplateRenderer struct {
	templates *template.Template
}

// NewRenderer parses every embedded page template.
func NewRenderer() (*TemplateRenderer, error) {
	templates, err := template.ParseFS(FS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: templates}, nil
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// Static returns the embedded public assets rooted at their own directory.
func Static() fs.FS {
	public, err := fs.Sub(FS, "public")
	if err != nil {
		// "public" is embedded at build time, so this cannot fail.
		panic(err)
	}
	return public
}
