package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/omnera-dev/omnera/internal/document"
	"github.com/omnera-dev/omnera/internal/engine"
	"github.com/omnera-dev/omnera/model"
)

// handleValidate resolves the request body without installing it. The body
// is read as YAML or JSON depending on its Content-Type. A valid document
// answers 200 with the report; an invalid one answers 400 with every issue.
func handleValidate(eng *engine.Engine, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteRequestError(w, r, model.NewBadRequestError(
					fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
				return
			}
			WriteRequestError(w, r, model.NewBadRequestError("request body could not be read"))
			return
		}
		if len(data) == 0 {
			WriteRequestError(w, r, model.NewBadRequestError("request body is empty"))
			return
		}

		format := document.FormatFromContentType(r.Header.Get("Content-Type"))
		rep, err := eng.Validate(r.Context(), data, format)
		if err != nil {
			WriteRequestError(w, r, err)
			return
		}
		if !rep.Valid {
			WriteRequestError(w, r, model.NewReportError(rep.Issues))
			return
		}
		WriteJSON(w, http.StatusOK, rep)
	}
}
