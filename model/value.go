package model

// RawDocument is an untyped application document: string keys mapping to
// JSON-compatible values (string, number, bool, nil, []any, map[string]any).
// Resolution never mutates it.
type RawDocument map[string]any

// Value is a raw property as read from its parent object. Present is false
// when the key does not exist, which is distinct from an explicit null.
type Value struct {
	Raw     any
	Present bool
}

// Absent returns the value of a missing key.
func Absent() Value {
	return Value{}
}

// ValueOf wraps a raw value that was found in the document.
func ValueOf(raw any) Value {
	return Value{Raw: raw, Present: true}
}

// Lookup reads key from obj, reporting absence through Present.
func Lookup(obj map[string]any, key string) Value {
	raw, ok := obj[key]
	return Value{Raw: raw, Present: ok}
}

// IsNull reports whether the value was given as an explicit null.
func (v Value) IsNull() bool {
	return v.Present && v.Raw == nil
}

// Kind names a referenceable entity collection.
type Kind string

const (
	KindTable      Kind = "table"
	KindField      Kind = "field"
	KindPage       Kind = "page"
	KindAutomation Kind = "automation"
	KindConnection Kind = "connection"
)

// CrossReference is a dependency of the entity at From on the entity of
// kind ToKind identified by ToID. References are checked during resolution
// and are not kept in the resolved application.
type CrossReference struct {
	From   Path
	ToKind Kind
	ToID   string
}
