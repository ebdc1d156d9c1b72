// internal/app/features/appointments/routes.go
package appointments

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts all appointment routes under the base path
// (typically "/appointments" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleCreate)
	r.Get("/family/{familyID}", h.ServeByFamily)
	r.Delete("/{id}", h.HandleDelete)

	return r
}
