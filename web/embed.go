// Package web embeds the dashboard page and its static assets.
//
// The page is a server-rendered html/template; the browser draws the
// figures with Plotly from the JSON chart specs the API returns.
//
// Usage in the API server:
//
//	import "github.com/seenimoa/yieldboard/web"
//	err := web.RenderDashboard(w, page) // execute the page template
//	fs := web.StaticFS()                // io/fs.FS rooted at static/
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"log"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed all:static
var static embed.FS

var dashboard = template.Must(template.ParseFS(templates, "templates/dashboard.html"))

// Field is one option of the spread dropdown.
type Field struct {
	Value string
	Label string
}

// Page is the data the dashboard template renders.
type Page struct {
	Title         string
	DefaultDate   string
	MinDate       string
	MaxDate       string
	SpreadFields  []Field
	DefaultSpread string
	Version       string
}

// RenderDashboard executes the dashboard template into w.
func RenderDashboard(w io.Writer, p Page) error {
	return dashboard.ExecuteTemplate(w, "dashboard.html", p)
}

// StaticFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS or http.FS.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		log.Fatalf("web.StaticFS: %v", err)
	}
	return sub
}
