package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Segment is one step of a Path: either an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path locates a value inside a RawDocument. Paths are immutable: Key and
// Index return new paths and never modify the receiver.
type Path struct {
	segs []Segment
}

// Root returns the empty path addressing the document itself.
func Root() Path {
	return Path{}
}

// PathOf builds a path from string and int segments. Any other segment type
// panics.
func PathOf(segments ...any) Path {
	p := Root()
	for _, s := range segments {
		switch v := s.(type) {
		case string:
			p = p.Key(v)
		case int:
			p = p.Index(v)
		default:
			panic("model: path segment must be string or int")
		}
	}
	return p
}

// Key returns a new path with an object key appended.
func (p Path) Key(key string) Path {
	return p.with(Segment{Key: key})
}

// Index returns a new path with an array index appended.
func (p Path) Index(i int) Path {
	return p.with(Segment{Index: i, IsIndex: true})
}

func (p Path) with(s Segment) Path {
	segs := make([]Segment, len(p.segs)+1)
	copy(segs, p.segs)
	segs[len(p.segs)] = s
	return Path{segs: segs}
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segs))
	copy(out, p.segs)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segs)
}

// Last returns the final segment and false for the root path.
func (p Path) Last() (Segment, bool) {
	if len(p.segs) == 0 {
		return Segment{}, false
	}
	return p.segs[len(p.segs)-1], true
}

// String renders the path as pages[2].inputs[0].name. The root renders as $.
func (p Path) String() string {
	if len(p.segs) == 0 {
		return "$"
	}
	var b strings.Builder
	for i, s := range p.segs {
		if s.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Key)
	}
	return b.String()
}

// MarshalJSON encodes the path in its string form.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Compare orders paths segment by segment. Index segments compare
// numerically and sort before key segments; a prefix sorts first.
func (p Path) Compare(o Path) int {
	n := min(len(p.segs), len(o.segs))
	for i := 0; i < n; i++ {
		if c := compareSegment(p.segs[i], o.segs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(p.segs) < len(o.segs):
		return -1
	case len(p.segs) > len(o.segs):
		return 1
	}
	return 0
}

// Equal reports whether both paths address the same location.
func (p Path) Equal(o Path) bool {
	return p.Compare(o) == 0
}

func compareSegment(a, b Segment) int {
	switch {
	case a.IsIndex && b.IsIndex:
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		}
		return 0
	case a.IsIndex:
		return -1
	case b.IsIndex:
		return 1
	}
	return strings.Compare(a.Key, b.Key)
}
