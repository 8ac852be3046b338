package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entity is a validated, typed entity of an application together with its
// assigned id and the document location it was declared at.
type Entity[T any] struct {
	ID   string `json:"id"`
	Path Path   `json:"path"`
	Kind Kind   `json:"kind"`
	Data T      `json:"data"`
}

// Collection is an immutable, document-ordered set of entities indexed by id.
type Collection[T any] struct {
	items []Entity[T]
	byID  map[string]int
}

// NewCollection indexes items by id. Ids must be unique; the resolver
// guarantees it, so a duplicate here is a programming error and panics.
func NewCollection[T any](items []Entity[T]) Collection[T] {
	c := Collection[T]{
		items: make([]Entity[T], len(items)),
		byID:  make(map[string]int, len(items)),
	}
	copy(c.items, items)
	for i, e := range c.items {
		if _, dup := c.byID[e.ID]; dup {
			panic(fmt.Sprintf("model: duplicate %s id %q in collection", e.Kind, e.ID))
		}
		c.byID[e.ID] = i
	}
	return c
}

// Len returns the number of entities.
func (c Collection[T]) Len() int {
	return len(c.items)
}

// Get returns the entity with the given id.
func (c Collection[T]) Get(id string) (Entity[T], bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entity[T]{}, false
	}
	return c.items[i], true
}

// All returns the entities in document order. The slice is a copy.
func (c Collection[T]) All() []Entity[T] {
	out := make([]Entity[T], len(c.items))
	copy(out, c.items)
	return out
}

// IDs returns the entity ids in document order.
func (c Collection[T]) IDs() []string {
	out := make([]string, len(c.items))
	for i, e := range c.items {
		out[i] = e.ID
	}
	return out
}

// MarshalJSON encodes the collection as an object keyed by id, keeping
// document order.
func (c Collection[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %q: %w", e.Kind, e.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Application is a fully resolved application: every entity validated,
// every id unique within its collection and every cross-reference satisfied.
// It is never modified after construction; a new document produces a new
// Application.
type Application struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Version     string                 `json:"version,omitempty"`
	Tables      Collection[Table]      `json:"tables"`
	Pages       Collection[Page]       `json:"pages"`
	Automations Collection[Automation] `json:"automations"`
	Connections Collection[Connection] `json:"connections"`
}

// EntityCount returns the number of entities per kind. Fields are counted
// across all tables.
func (a *Application) EntityCount() map[Kind]int {
	fields := 0
	for _, t := range a.Tables.items {
		fields += len(t.Data.Fields)
	}
	return map[Kind]int{
		KindTable:      a.Tables.Len(),
		KindField:      fields,
		KindPage:       a.Pages.Len(),
		KindAutomation: a.Automations.Len(),
		KindConnection: a.Connections.Len(),
	}
}
