package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apptservice "github.com/edusuite/tutordesk/internal/app/service/appointments"
	"github.com/edusuite/tutordesk/internal/app/system/respond"
	"github.com/edusuite/tutordesk/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the appointment API.
type Handler struct {
	Svc *apptservice.Service
	Log *zap.Logger
}

func NewHandler(svc *apptservice.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// createRequest is the payload for POST /appointments.
type createRequest struct {
	FamilyID    string    `json:"family_id"`
	AdminID     string    `json:"admin_id,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    string    `json:"location,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// HandleCreate handles POST /appointments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}

	in := apptservice.CreateInput{
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
		Notes:       req.Notes,
	}
	if req.AdminID != "" {
		oid, err := primitive.ObjectIDFromHex(req.AdminID)
		if err != nil {
			respond.BadRequest(w, "invalid admin_id")
			return
		}
		in.AdminID = &oid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create appointment")
	defer cancel()

	appt, err := h.Svc.Create(ctx, req.FamilyID, in)
	if err != nil {
		if errors.Is(err, apptservice.ErrScheduleInPast) {
			respond.BadRequest(w, "scheduled_at must be in the future")
			return
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, appt)
}

// ServeByFamily handles GET /appointments/family/{familyID}.
func (h *Handler) ServeByFamily(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list family appointments")
	defer cancel()

	appts, err := h.Svc.ByFamily(ctx, chi.URLParam(r, "familyID"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, appts)
}

// HandleDelete handles DELETE /appointments/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete appointment")
	defer cancel()

	if err := h.Svc.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
