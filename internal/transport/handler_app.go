package transport

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omnera-dev/omnera/internal/registry"
	"github.com/omnera-dev/omnera/model"
)

// handleGetApplication serves the whole resolved application. The document
// checksum is the entity tag.
func handleGetApplication(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := reg.Application()
		if !ok {
			WriteRequestError(w, r, model.NewNotLoadedError())
			return
		}
		etag := `"` + reg.Checksum() + `"`
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Last-Modified", reg.LoadedAt().UTC().Format(http.TimeFormat))
		WriteJSON(w, http.StatusOK, app)
	}
}

// handleGetEntity serves one entity looked up by the URL parameter param.
func handleGetEntity[T any](reg *registry.Registry, kind model.Kind, param string, lookup func(string) (model.Entity[T], bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !reg.Loaded() {
			WriteRequestError(w, r, model.NewNotLoadedError())
			return
		}
		id := chi.URLParam(r, param)
		entity, ok := lookup(id)
		if !ok {
			WriteRequestError(w, r, model.NewNotFoundError(fmt.Sprintf("%s %q not found", kind, id)))
			return
		}
		WriteJSON(w, http.StatusOK, entity)
	}
}
