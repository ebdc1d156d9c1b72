// internal/app/features/professors/routes.go
package professors

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts all tutor roster routes under the base path
// (typically "/professors" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)
	r.Delete("/{id}", h.HandleDelete)

	return r
}
