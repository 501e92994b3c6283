package httpcontroller

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer is a custom HTML template renderer for Echo framework.
type TemplateRenderer struct {
	templates *template.Template
	logger    echo.Logger
}

// Render renders a template with the given data.
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	// Buffer the output so a failed template execution never leaves a
	// half-written response body.
	var buf bytes.Buffer
	err := t.templates.ExecuteTemplate(&buf, name, data)
	if err != nil {
		t.logger.Errorf("Error executing template %s: %v", name, err)
		return err
	}

	_, err = buf.WriteTo(w)
	if err != nil {
		t.logger.Errorf("Error writing template result: %v", err)
	}
	return err
}

// setupTemplateRenderer configures the template renderer for the server
func (s *Server) setupTemplateRenderer() error {
	funcMap := template.FuncMap{
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return string(s[0]&^0x20) + s[1:]
		},
		"formatPopulation": formatPopulation,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(ViewsFs, "views/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	s.Echo.Renderer = &TemplateRenderer{
		templates: tmpl,
		logger:    s.Echo.Logger,
	}
	return nil
}

// formatPopulation renders a nullable population count, grouping thousands.
func formatPopulation(p *int64) string {
	if p == nil {
		return "Unknown"
	}
	return groupThousands(*p)
}

func groupThousands(n int64) string {
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	return groupThousands(n/1000) + fmt.Sprintf(",%03d", n%1000)
}
