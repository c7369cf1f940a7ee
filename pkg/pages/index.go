// Package pages renders the service's HTML pages.
package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Route describes one API endpoint for the index page.
type Route struct {
	Method      string
	Path        string
	Auth        bool
	Description string
}

// Index lists the API routes.
func Index(title string, routes []Route) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, templ.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</title></head><body><h1>`+templ.EscapeString(title)+`</h1>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<table><thead><tr><th>Method</th><th>Path</th><th>Auth</th><th>Description</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, r := range routes {
			auth := "none"
			if r.Auth {
				auth = "bearer"
			}
			row := `<tr><td>` + templ.EscapeString(r.Method) +
				`</td><td><code>` + templ.EscapeString(r.Path) +
				`</code></td><td>` + auth +
				`</td><td>` + templ.EscapeString(r.Description) + `</td></tr>`
			if _, err := io.WriteString(w, row); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table></body></html>`)
		return err
	})
}
