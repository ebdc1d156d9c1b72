// internal/app/features/settlementnotes/routes.go
package settlementnotes

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts all settlement-note routes under the base path
// (typically "/notes" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeList)
	r.Get("/stats", h.ServeStats)

	r.Get("/{id}", h.ServeView)
	r.Get("/{id}/coupons", h.ServeCouponRows)
	r.Delete("/{id}", h.HandleDelete)

	r.Post("/{id}/coupons/{couponID}/redeem", h.HandleRedeem)

	return r
}
