// Package views renders the console pages. Each page is an html/template
// set sharing the layout, exposed as a templ.Component.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

//go:embed static
var staticFS embed.FS

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/favicon.svg
var faviconFS []byte

const (
	pageDashboard   = "dashboard"
	pageBuckets     = "buckets"
	pageBucketFiles = "bucket_files"
	pageApps        = "apps"
	pageReplication = "replication"
	pageError       = "error"
)

var pageNames = []string{
	pageDashboard,
	pageBuckets,
	pageBucketFiles,
	pageApps,
	pageReplication,
	pageError,
}

// Views holds the parsed page templates.
type Views struct {
	pages          map[string]*template.Template
	authenticating *template.Template
}

// NewViews parses the embedded templates.
func NewViews() (*Views, error) {
	base, err := template.New("layout.html").Funcs(funcMap()).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	v := &Views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		page, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout for %s: %w", name, err)
		}
		if _, err := page.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		v.pages[name] = page
	}

	v.authenticating, err = template.ParseFS(templatesFS, "templates/authenticating.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse authenticating page: %w", err)
	}
	return v, nil
}

func (v *Views) page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return v.pages[name].ExecuteTemplate(w, "layout", data)
	})
}

// StaticHandler serves the embedded assets. It expects the full request
// path, /static/app.css maps to static/app.css.
var StaticHandler = http.FileServer(http.FS(staticFS))
