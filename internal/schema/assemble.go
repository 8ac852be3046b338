package schema

import (
	"github.com/go-openapi/inflect"

	"github.com/omnera-dev/omnera/model"
)

// assemble returns a Failure with every issue when any of them is an error.
// Otherwise it applies the remaining defaults and builds the Application;
// nothing is built on failure.
func (rs *resolution) assemble() model.Result {
	issues := rs.issues()
	if issues.HasErrors() {
		return model.Failure(issues)
	}
	for _, e := range rs.tables {
		defaultLabels(e.data.(*model.Table))
	}
	defaultPagePaths(rs.pages)

	app := &model.Application{
		Name:        rs.app.props.String("name"),
		Description: rs.app.props.String("description"),
		Version:     rs.app.props.String("version"),
		Tables:      collection[model.Table](rs.tables),
		Pages:       collection[model.Page](rs.pages),
		Automations: collection[model.Automation](rs.automations),
		Connections: collection[model.Connection](rs.connections),
	}
	return model.Success(app, issues)
}

func collection[T any](ents []*entity) model.Collection[T] {
	items := make([]model.Entity[T], len(ents))
	for i, e := range ents {
		items[i] = model.Entity[T]{ID: e.id, Path: e.path, Kind: e.kind, Data: *e.data.(*T)}
	}
	return model.NewCollection(items)
}

// defaultLabels humanizes the name of every field without a label.
func defaultLabels(t *model.Table) {
	for i := range t.Fields {
		if t.Fields[i].Label == "" {
			t.Fields[i].Label = inflect.Humanize(t.Fields[i].Name)
		}
	}
}

// defaultPagePaths gives every page without a path "/<id>", suffixed when
// an explicit path already uses it.
func defaultPagePaths(pages []*entity) {
	taken := make(map[string]bool, len(pages))
	for _, e := range pages {
		if p := e.data.(*model.Page); p.Path != "" {
			taken[p.Path] = true
		}
	}
	for _, e := range pages {
		p := e.data.(*model.Page)
		if p.Path != "" {
			continue
		}
		p.Path = firstFree("/"+e.id, func(s string) bool { return taken[s] })
		taken[p.Path] = true
	}
}
