// Package schema resolves untyped application documents into validated,
// immutable application models.
//
// Resolution accumulates every issue instead of stopping at the first one.
// It runs in phases: application metadata, then tables, pages, automations
// and connections element by element, then id assignment, then
// cross-reference checks, then assembly.
package schema

import (
	"context"
	"regexp"

	"github.com/omnera-dev/omnera/model"
)

var appNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._-]*$`)

var appShape = newShape("app", false,
	Property{"name", StringRule{Required: true, MaxLength: 214, Pattern: appNamePattern}},
	Property{"description", StringRule{}},
	Property{"version", StringRule{Format: "semver"}},
	Property{"tables", ArrayRule{}},
	Property{"pages", ArrayRule{}},
	Property{"automations", ArrayRule{}},
	Property{"connections", ArrayRule{}},
)

// Resolve validates doc and, when it has no error-severity issue, assembles
// it into an Application. It never panics on bad input and is safe for
// concurrent use.
func Resolve(doc model.RawDocument) model.Result {
	res, _ := ResolveContext(context.Background(), doc)
	return res
}

// ResolveContext is Resolve with a cancellation check between phases. It
// returns ctx.Err() when cancelled.
func ResolveContext(ctx context.Context, doc model.RawDocument) (model.Result, error) {
	rs := &resolution{}
	phases := []func(){
		func() { rs.metadata(doc) },
		func() { rs.tables = collect(rs.app, "tables", validateTable) },
		func() { rs.pages = collect(rs.app, "pages", validatePage) },
		func() { rs.automations = collect(rs.app, "automations", validateAutomation) },
		func() { rs.connections = collect(rs.app, "connections", validateConnection) },
		rs.identify,
		rs.references,
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return model.Result{}, err
		}
		phase()
	}
	return rs.assemble(), nil
}

type resolution struct {
	app *reader

	tables      []*entity
	pages       []*entity
	automations []*entity
	connections []*entity

	// refIssues holds the cross-reference issues.
	refIssues model.Issues
}

func (rs *resolution) metadata(doc model.RawDocument) {
	if doc == nil {
		doc = model.RawDocument{}
	}
	rs.app = newReader(doc, model.Root())
	rs.app.apply(appShape)
	rs.app.finish(appShape.Closed, nil)
}

func collect(app *reader, key string, validate func(any, model.Path, int) *entity) []*entity {
	items := app.props.List(key)
	out := make([]*entity, 0, len(items))
	for i, item := range items {
		out = append(out, validate(item, model.PathOf(key, i), i))
	}
	return out
}

// identify assigns ids to every collection and checks explicit page paths.
func (rs *resolution) identify() {
	assignIDs(model.KindTable, rs.tables)
	assignIDs(model.KindPage, rs.pages)
	assignIDs(model.KindAutomation, rs.automations)
	assignIDs(model.KindConnection, rs.connections)
	checkPagePaths(rs.pages)
}

// references indexes every entity in one pass, then resolves the collected
// references in document order.
func (rs *resolution) references() {
	ix := NewIndex()
	var refs []model.CrossReference
	for _, e := range rs.tables {
		ix.Add(e.kind, e.id, e.valid())
		for _, f := range e.fields {
			if f.name != "" {
				ix.Add(model.KindField, fieldID(e.id, f.name), f.valid)
			}
		}
	}
	for _, ents := range [][]*entity{rs.pages, rs.automations, rs.connections} {
		for _, e := range ents {
			ix.Add(e.kind, e.id, e.valid())
		}
	}
	for _, ents := range rs.all() {
		for _, e := range ents {
			refs = append(refs, e.refs...)
		}
	}
	rs.refIssues = ResolveReferences(ix, refs)
}

func (rs *resolution) all() [][]*entity {
	return [][]*entity{rs.tables, rs.pages, rs.automations, rs.connections}
}

// issues gathers the issues of every phase.
func (rs *resolution) issues() model.Issues {
	out := append(model.Issues{}, rs.app.issues...)
	for _, ents := range rs.all() {
		for _, e := range ents {
			out = append(out, e.issues...)
		}
	}
	return append(out, rs.refIssues...)
}
