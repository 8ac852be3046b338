package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/omnera-dev/omnera/model"
)

// MemoryStore is an in-memory SnapshotStore for tests and single-instance
// deployments without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps []Snapshot // insertion order
	byID  map[uuid.UUID]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]int)}
}

// Save persists a new snapshot.
func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[snap.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("snapshot %q already exists", snap.ID))
	}
	s.byID[snap.ID] = len(s.snaps)
	s.snaps = append(s.snaps, snap)
	return nil
}

// Get returns a snapshot by ID.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return Snapshot{}, model.NewNotFoundError(fmt.Sprintf("snapshot %q not found", id))
	}
	return s.snaps[i], nil
}

// Latest returns the newest snapshot.
func (s *MemoryStore) Latest(ctx context.Context) (Snapshot, error) {
	snaps, _ := s.List(ctx, 1)
	if len(snaps) == 0 {
		return Snapshot{}, model.NewNotFoundError("no snapshot has been saved")
	}
	return snaps[0], nil
}

// List returns snapshots newest first. Snapshots created at the same instant
// keep reverse insertion order.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	out := make([]Snapshot, len(s.snaps))
	for i, snap := range s.snaps {
		out[len(s.snaps)-1-i] = snap
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// HealthCheck always succeeds.
func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}
