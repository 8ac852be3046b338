package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omnera-dev/omnera/internal/engine"
	"github.com/omnera-dev/omnera/internal/store"
	"github.com/omnera-dev/omnera/model"
)

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 100
)

// handleReload re-reads the document file. A rejected document answers 400
// with every issue and leaves the served application untouched.
func handleReload(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := eng.Reload(r.Context())
		if err != nil {
			WriteRequestError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

type snapshotSummary struct {
	ID        uuid.UUID `json:"id"`
	Checksum  string    `json:"checksum"`
	Name      string    `json:"name"`
	Version   string    `json:"version,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// handleListSnapshots lists installed applications, newest first, without
// their documents.
func handleListSnapshots(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultSnapshotLimit)
		if limit <= 0 || limit > maxSnapshotLimit {
			limit = maxSnapshotLimit
		}
		snaps, err := eng.Snapshots(r.Context(), limit)
		if err != nil {
			WriteRequestError(w, r, err)
			return
		}
		out := make([]snapshotSummary, len(snaps))
		for i, s := range snaps {
			out[i] = summarize(s)
		}
		WriteJSON(w, http.StatusOK, map[string]any{"snapshots": out})
	}
}

func handleGetSnapshot(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "snapshotId"))
		if err != nil {
			WriteRequestError(w, r, model.NewBadRequestError("snapshot id must be a UUID"))
			return
		}
		snap, err := eng.Snapshot(r.Context(), id)
		if err != nil {
			WriteRequestError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, snap)
	}
}

func summarize(s store.Snapshot) snapshotSummary {
	return snapshotSummary{
		ID:        s.ID,
		Checksum:  s.Checksum,
		Name:      s.Name,
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
	}
}

// queryInt extracts an integer query param with a default.
func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
