package schema

import (
	"github.com/omnera-dev/omnera/model"
)

// entity is a top-level declaration collected while validating a
// collection. Its data is built from partial props even when invalid so
// that later phases can keep going.
type entity struct {
	kind model.Kind
	path model.Path
	pos  int

	name     string
	id       string
	explicit bool

	issues model.Issues
	refs   []model.CrossReference
	data   any

	// fields lists the declared fields of a table, for field references.
	fields []fieldEntry
}

type fieldEntry struct {
	name  string
	valid bool
}

func newEntity(kind model.Kind, path model.Path, pos int) *entity {
	return &entity{kind: kind, path: path, pos: pos}
}

func (e *entity) add(issues ...model.Issue) {
	e.issues = append(e.issues, issues...)
}

// ref records a dependency on another entity. Empty ids are skipped: the
// missing value has already been reported.
func (e *entity) ref(from model.Path, kind model.Kind, id string) {
	if id == "" {
		return
	}
	e.refs = append(e.refs, model.CrossReference{From: from, ToKind: kind, ToID: id})
}

func (e *entity) valid() bool {
	return !e.issues.HasErrors()
}

// identify records the name and the explicit id of the object behind r.
// Both are read raw: an id that fails its rule still claims its value so
// references to it report REFERENCE_TO_INVALID_ENTITY.
func (e *entity) identify(r *reader) {
	e.name = r.peek("name")
	if id := r.peek("id"); id != "" {
		e.id, e.explicit = id, true
	}
}

// nameSet detects duplicate names inside one nested collection.
type nameSet map[string]model.Path

// claim reports DUPLICATE_NAME at the second occurrence of name.
func (s nameSet) claim(name string, at model.Path, what string) *model.Issue {
	return s.claimAs(model.CodeDuplicateName, name, at, what)
}

// claimID reports DUPLICATE_ID at the second occurrence of id.
func (s nameSet) claimID(id string, at model.Path, what string) *model.Issue {
	return s.claimAs(model.CodeDuplicateID, id, at, what+" id")
}

func (s nameSet) claimAs(code model.Code, key string, at model.Path, what string) *model.Issue {
	if key == "" {
		return nil
	}
	if first, dup := s[key]; dup {
		return issuef(at, code, "%s %q is already declared at %s", what, key, first)
	}
	s[key] = at
	return nil
}

// rawString reads key from raw without validating it. Non-objects and
// non-strings read as "".
func rawString(raw any, key string) string {
	obj, _ := raw.(map[string]any)
	s, _ := obj[key].(string)
	return s
}
