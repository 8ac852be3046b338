// Package store keeps a history of the applications that were successfully
// resolved and served.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omnera-dev/omnera/model"
)

// Snapshot is one successfully resolved application as it was installed.
type Snapshot struct {
	ID        uuid.UUID       `json:"id"`
	Checksum  string          `json:"checksum"`
	Name      string          `json:"name"`
	Version   string          `json:"version,omitempty"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewSnapshot captures app, encoded in its resolved JSON form.
func NewSnapshot(app *model.Application, checksum string) (Snapshot, error) {
	doc, err := json.Marshal(app)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal application: %w", err)
	}
	return Snapshot{
		ID:        uuid.New(),
		Checksum:  checksum,
		Name:      app.Name,
		Version:   app.Version,
		Document:  doc,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SnapshotStore persists snapshots.
type SnapshotStore interface {
	// Save persists a new snapshot. Saving an existing ID is a CONFLICT.
	Save(ctx context.Context, snap Snapshot) error

	// Get returns the snapshot with the given ID, or NOT_FOUND.
	Get(ctx context.Context, id uuid.UUID) (Snapshot, error)

	// Latest returns the most recently created snapshot, or NOT_FOUND when
	// the store is empty.
	Latest(ctx context.Context) (Snapshot, error)

	// List returns up to limit snapshots, newest first. A non-positive
	// limit returns all of them.
	List(ctx context.Context, limit int) ([]Snapshot, error)
}
