// internal/app/features/subjects/routes.go
package subjects

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the subject catalog routes under the base path
// (typically "/subjects" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	return r
}
