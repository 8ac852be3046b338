package schema

import (
	"fmt"

	"github.com/omnera-dev/omnera/model"
)

// Index maps the ids of every entity kind to whether the entity validated.
type Index struct {
	valid map[model.Kind]map[string]bool
	order map[model.Kind][]string
}

func NewIndex() *Index {
	return &Index{
		valid: make(map[model.Kind]map[string]bool),
		order: make(map[model.Kind][]string),
	}
}

// Add registers an entity. The first registration of an id wins.
func (ix *Index) Add(kind model.Kind, id string, valid bool) {
	ids := ix.valid[kind]
	if ids == nil {
		ids = make(map[string]bool)
		ix.valid[kind] = ids
	}
	if _, ok := ids[id]; ok {
		return
	}
	ids[id] = valid
	ix.order[kind] = append(ix.order[kind], id)
}

// Lookup reports whether id exists for kind and whether it is valid.
func (ix *Index) Lookup(kind model.Kind, id string) (valid, found bool) {
	valid, found = ix.valid[kind][id]
	return valid, found
}

// ResolveReferences checks every reference against the index, in the order
// given. It checks existence only: self and mutual references are legal.
func ResolveReferences(ix *Index, refs []model.CrossReference) model.Issues {
	var issues model.Issues
	for _, ref := range refs {
		valid, found := ix.Lookup(ref.ToKind, ref.ToID)
		switch {
		case !found:
			msg := fmt.Sprintf("%s %q does not exist", ref.ToKind, ref.ToID)
			if s, ok := closest(ref.ToID, ix.order[ref.ToKind]); ok {
				msg += fmt.Sprintf("; did you mean %q?", s)
			}
			issues = append(issues, model.NewIssue(ref.From, model.CodeDanglingReference, "%s", msg))
		case !valid:
			issues = append(issues, model.NewIssue(ref.From, model.CodeReferenceToInvalidEntity,
				"%s %q is referenced but has validation errors", ref.ToKind, ref.ToID))
		}
	}
	return issues
}
