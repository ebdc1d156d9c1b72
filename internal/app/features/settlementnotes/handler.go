package settlementnotes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	noteservice "github.com/edusuite/tutordesk/internal/app/service/settlementnotes"
	"github.com/edusuite/tutordesk/internal/app/system/respond"
	"github.com/edusuite/tutordesk/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the settlement-note API.
type Handler struct {
	Svc *noteservice.Service
	Log *zap.Logger
}

func NewHandler(svc *noteservice.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// createRequest is the payload for POST /notes.
type createRequest struct {
	FamilyID    string   `json:"family_id"`
	StudentIDs  []string `json:"student_ids"`
	Quantity    int      `json:"quantity"`
	HourlyRate  float64  `json:"hourly_rate"`
	CreatedByID string   `json:"created_by_id,omitempty"`
}

// HandleCreate handles POST /notes: issues a note with its coupon batch.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}

	in := noteservice.CreateInput{
		StudentIDs: req.StudentIDs,
		Quantity:   req.Quantity,
		HourlyRate: req.HourlyRate,
	}
	if req.CreatedByID != "" {
		oid, err := primitive.ObjectIDFromHex(req.CreatedByID)
		if err != nil {
			respond.BadRequest(w, "invalid created_by_id")
			return
		}
		in.CreatedByID = oid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "issue settlement note")
	defer cancel()

	note, err := h.Svc.Create(ctx, req.FamilyID, in)
	if err != nil {
		switch {
		case errors.Is(err, noteservice.ErrInvalidQuantity):
			respond.BadRequest(w, "quantity must be positive")
		case errors.Is(err, noteservice.ErrStudentNotInFamily):
			respond.BadRequest(w, "student does not belong to this family")
		default:
			respond.Error(w, h.Log, err)
		}
		return
	}
	respond.JSON(w, http.StatusCreated, note)
}

// ServeList handles GET /notes?page=N.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list settlement notes")
	defer cancel()

	notes, err := h.Svc.List(ctx, page)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, notes)
}

// ServeStats handles GET /notes/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "settlement note stats")
	defer cancel()

	totals, err := h.Svc.Stats(ctx)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, totals)
}

// ServeView handles GET /notes/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "view settlement note")
	defer cancel()

	note, err := h.Svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, note)
}

// ServeCouponRows handles GET /notes/{id}/coupons: the normalized
// coupon rows backing the note's series.
func (h *Handler) ServeCouponRows(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list coupon rows")
	defer cancel()

	rows, err := h.Svc.CouponRows(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

// HandleRedeem handles POST /notes/{id}/coupons/{couponID}/redeem.
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "redeem coupon")
	defer cancel()

	note, err := h.Svc.RedeemCoupon(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "couponID"))
	if err != nil {
		if errors.Is(err, noteservice.ErrCouponUnavailable) {
			respond.Conflict(w, "coupon is not available")
			return
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, note)
}

// HandleDelete handles DELETE /notes/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete settlement note")
	defer cancel()

	if err := h.Svc.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
