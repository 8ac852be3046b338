package schema

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/omnera-dev/omnera/model"
)

// Slug derives an id candidate from a display name: accents are folded,
// letters lowercased and every run of characters outside [a-z0-9] becomes a
// single hyphen. Leading and trailing hyphens are dropped.
func Slug(name string) string {
	// Transformers keep state, so each call builds its own chain.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if gap && b.Len() > 0 {
				b.WriteByte('-')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}

// assignIDs gives every entity of one collection a unique id. Explicit ids
// are claimed first in document order and a repeated one is DUPLICATE_ID at
// the later entity. Entities without an id get the slug of their name, or
// "<kind>-<position>" when the slug is empty, suffixed with -2, -3, ... until
// free.
func assignIDs(kind model.Kind, ents []*entity) {
	taken := make(map[string]model.Path, len(ents))
	for _, e := range ents {
		if !e.explicit {
			continue
		}
		if first, dup := taken[e.id]; dup {
			e.add(model.NewIssue(e.path.Key("id"), model.CodeDuplicateID,
				"%s id %q is already used by %s", kind, e.id, first))
			continue
		}
		taken[e.id] = e.path
	}
	for _, e := range ents {
		if e.explicit {
			continue
		}
		base := Slug(e.name)
		if base == "" {
			base = fmt.Sprintf("%s-%d", kind, e.pos+1)
		}
		e.id = firstFree(base, func(id string) bool {
			_, ok := taken[id]
			return ok
		})
		taken[e.id] = e.path
	}
}

// firstFree returns base, or base-2, base-3, ... whichever is not taken.
func firstFree(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		if c := fmt.Sprintf("%s-%d", base, n); !taken(c) {
			return c
		}
	}
}
