package main

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Zachkp/resume-terminal/internal/terminal"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var templateFuncs = template.FuncMap{
	"emphasis":  emphasis,
	"cell":      terminal.Cell,
	"humanTime": humanize.Time,
	"comma":     humanize.Comma,
	"inc":       func(i int) int { return i + 1 },
	"join":      strings.Join,
	"lines":     func(s string) []string { return strings.Split(s, "\n") },
}

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// emphasis escapes s and renders **text** spans as <strong>. An unpaired
// marker is kept literally.
func emphasis(s string) template.HTML {
	parts := strings.Split(s, "**")
	if len(parts)%2 == 0 {
		last := len(parts) - 1
		parts[last-1] += "**" + parts[last]
		parts = parts[:last]
	}

	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			b.WriteString("<strong>")
			b.WriteString(template.HTMLEscapeString(p))
			b.WriteString("</strong>")
			continue
		}
		b.WriteString(template.HTMLEscapeString(p))
	}
	return template.HTML(b.String())
}
