// internal/app/features/families/routes.go
package families

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts all family routes under the base path
// (typically "/families" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeList)
	r.Get("/stats", h.ServeStats)

	r.Get("/{id}", h.ServeView)
	r.Delete("/{id}", h.HandleDelete)

	// Section-scoped partial updates
	r.Patch("/{id}/contact", h.HandleUpdateContact)
	r.Patch("/{id}/address", h.HandleUpdateAddress)
	r.Patch("/{id}/company", h.HandleUpdateCompany)
	r.Patch("/{id}/request", h.HandleUpdateRequest)

	// Students ride on the family aggregate
	r.Post("/{id}/students", h.HandleAddStudent)
	r.Patch("/students/{studentID}", h.HandleUpdateStudent)
	r.Delete("/students/{studentID}", h.HandleRemoveStudent)

	return r
}
