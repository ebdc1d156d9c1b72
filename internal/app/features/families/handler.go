package families

import (
	"encoding/json"
	"net/http"
	"strconv"

	familyservice "github.com/edusuite/tutordesk/internal/app/service/families"
	"github.com/edusuite/tutordesk/internal/app/system/respond"
	"github.com/edusuite/tutordesk/internal/app/system/timeouts"
	"github.com/edusuite/tutordesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the family API.
type Handler struct {
	Svc *familyservice.Service
	Log *zap.Logger
}

func NewHandler(svc *familyservice.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// createRequest is the payload for POST /families.
type createRequest struct {
	Contact struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"contact"`
	Address struct {
		Street     string `json:"street"`
		City       string `json:"city"`
		PostalCode string `json:"postal_code"`
	} `json:"address"`
	CreatedByID string `json:"created_by_id,omitempty"`
}

// HandleCreate handles POST /families.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}
	if req.Contact.LastName == "" {
		respond.BadRequest(w, "contact last_name is required")
		return
	}

	fam := models.Family{
		PrimaryContact: models.PrimaryContact{
			FirstName: req.Contact.FirstName,
			LastName:  req.Contact.LastName,
			Email:     req.Contact.Email,
			Phone:     req.Contact.Phone,
		},
		Address: models.Address{
			Street:     req.Address.Street,
			City:       req.Address.City,
			PostalCode: req.Address.PostalCode,
		},
	}
	if req.CreatedByID != "" {
		oid, err := primitive.ObjectIDFromHex(req.CreatedByID)
		if err != nil {
			respond.BadRequest(w, "invalid created_by_id")
			return
		}
		fam.CreatedByID = oid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create family")
	defer cancel()

	view, err := h.Svc.Create(ctx, fam)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view)
}

// ServeList handles GET /families?page=N.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list families")
	defer cancel()

	fams, err := h.Svc.List(ctx, page)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, fams)
}

// ServeStats handles GET /families/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "family stats")
	defer cancel()

	stats, err := h.Svc.Stats(ctx)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}

// ServeView handles GET /families/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "view family")
	defer cancel()

	view, err := h.Svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// HandleUpdateContact handles PATCH /families/{id}/contact.
func (h *Handler) HandleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update family contact")
	defer cancel()

	view, err := h.Svc.UpdateContact(ctx, chi.URLParam(r, "id"), familyservice.ContactUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// HandleUpdateAddress handles PATCH /families/{id}/address.
func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Street     string `json:"street"`
		City       string `json:"city"`
		PostalCode string `json:"postal_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update family address")
	defer cancel()

	view, err := h.Svc.UpdateAddress(ctx, chi.URLParam(r, "id"), familyservice.AddressUpdate{
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// HandleUpdateCompany handles PATCH /families/{id}/company.
func (h *Handler) HandleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		SIRET   string `json:"siret"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update family company")
	defer cancel()

	view, err := h.Svc.UpdateCompany(ctx, chi.URLParam(r, "id"), familyservice.CompanyUpdate{
		Name:    req.Name,
		SIRET:   req.SIRET,
		Address: req.Address,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// HandleUpdateRequest handles PATCH /families/{id}/request.
func (h *Handler) HandleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectIDs   []string `json:"subject_ids"`
		HoursPerWeek *int     `json:"hours_per_week"`
		Notes        *string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}

	upd := familyservice.RequestUpdate{
		HoursPerWeek: req.HoursPerWeek,
		Notes:        req.Notes,
	}
	if req.SubjectIDs != nil {
		ids := make([]primitive.ObjectID, 0, len(req.SubjectIDs))
		for _, raw := range req.SubjectIDs {
			oid, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				respond.BadRequest(w, "invalid subject id")
				return
			}
			ids = append(ids, oid)
		}
		upd.SubjectIDs = ids
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update family request")
	defer cancel()

	view, err := h.Svc.UpdateRequest(ctx, chi.URLParam(r, "id"), upd)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /families/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete family")
	defer cancel()

	res, err := h.Svc.Delete(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// HandleAddStudent handles POST /families/{id}/students.
func (h *Handler) HandleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Grade     string `json:"grade"`
		School    string `json:"school"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}
	if req.FirstName == "" {
		respond.BadRequest(w, "first_name is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "add student")
	defer cancel()

	st, err := h.Svc.AddStudent(ctx, chi.URLParam(r, "id"), models.Student{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Grade:     req.Grade,
		School:    req.School,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, st)
}

// HandleUpdateStudent handles PATCH /families/students/{studentID}.
func (h *Handler) HandleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Grade     string `json:"grade"`
		School    string `json:"school"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update student")
	defer cancel()

	st, err := h.Svc.UpdateStudent(ctx, chi.URLParam(r, "studentID"), familyservice.StudentUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Grade:     req.Grade,
		School:    req.School,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

// HandleRemoveStudent handles DELETE /families/students/{studentID}.
func (h *Handler) HandleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "remove student")
	defer cancel()

	if err := h.Svc.RemoveStudent(ctx, chi.URLParam(r, "studentID")); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
