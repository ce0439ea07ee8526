// Package templates holds the HTML pages of the shipment UI.
package templates

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed *.tmpl
var files embed.FS

// Funcs are the helpers available to every page.
var Funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
}

// Load parses every page. Pages are referenced by file name, e.g. "rates.tmpl".
func Load() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "*.tmpl")
}
