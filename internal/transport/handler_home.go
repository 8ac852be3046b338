package transport

import (
	"net/http"

	"github.com/omnera-dev/omnera/internal/openapi"
	"github.com/omnera-dev/omnera/internal/registry"
	"github.com/omnera-dev/omnera/internal/render"
	"github.com/omnera-dev/omnera/model"
)

func handleHome(reg *registry.Registry, renderer *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := reg.Application()
		if !ok {
			WriteRequestError(w, r, model.NewNotLoadedError())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := renderer.Home(w, app); err != nil {
			WriteRequestError(w, r, err)
		}
	}
}

func handleOpenAPI(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := reg.Application()
		if !ok {
			WriteRequestError(w, r, model.NewNotLoadedError())
			return
		}
		doc, err := openapi.Build(app)
		if err != nil {
			WriteRequestError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, doc)
	}
}
