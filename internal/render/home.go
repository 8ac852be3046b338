// Package render produces the server-side HTML of the application homepage.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/omnera-dev/omnera/internal/openapi"
	"github.com/omnera-dev/omnera/model"
)

const homeTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Name}}</title>
</head>
<body>
<main>
<h1>{{.Name}}</h1>
{{- with .Version}}
<p class="version">v{{.}}</p>
{{- end}}
{{- with .Description}}
<p class="description">{{.}}</p>
{{- end}}
{{- if .Pages}}
<nav>
<ul>
{{- range .Pages}}
<li><a href="{{.Path}}">{{.Title}}</a></li>
{{- end}}
</ul>
</nav>
{{- end}}
{{- if .Tables}}
<section class="tables">
<h2>Tables</h2>
<ul>
{{- range .Tables}}
<li><a href="{{.Records}}">{{.Name}}</a> <span class="count">{{.Fields}} fields</span></li>
{{- end}}
</ul>
</section>
{{- end}}
</main>
</body>
</html>
`

type homeView struct {
	Name        string
	Version     string
	Description string
	Pages       []pageLink
	Tables      []tableLink
}

type pageLink struct {
	Path  string
	Title string
}

type tableLink struct {
	Name    string
	Records string
	Fields  int
}

// Renderer renders the homepage of an application.
type Renderer struct {
	home *template.Template
}

// NewRenderer parses the page templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.New("home").Parse(homeTemplate)
	if err != nil {
		return nil, fmt.Errorf("render: parse home template: %w", err)
	}
	return &Renderer{home: t}, nil
}

// Home writes the homepage of app to w. The page is rendered into a buffer
// first so that a failing template never leaves a partial response.
func (r *Renderer) Home(w io.Writer, app *model.Application) error {
	var buf bytes.Buffer
	if err := r.home.Execute(&buf, newHomeView(app)); err != nil {
		return fmt.Errorf("render: home: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func newHomeView(app *model.Application) homeView {
	v := homeView{
		Name:        app.Name,
		Version:     app.Version,
		Description: app.Description,
	}
	for _, p := range app.Pages.All() {
		title := p.Data.Title
		if title == "" {
			title = p.Data.Name
		}
		v.Pages = append(v.Pages, pageLink{Path: p.Data.Path, Title: title})
	}
	for _, t := range app.Tables.All() {
		v.Tables = append(v.Tables, tableLink{
			Name:    t.Data.Name,
			Records: openapi.RecordsPath(t.ID),
			Fields:  len(t.Data.Fields),
		})
	}
	return v
}
