package professors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edusuite/tutordesk/internal/app/service/svcerrors"
	professorstore "github.com/edusuite/tutordesk/internal/app/store/professors"
	"github.com/edusuite/tutordesk/internal/app/system/respond"
	"github.com/edusuite/tutordesk/internal/app/system/timeouts"
	"github.com/edusuite/tutordesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the tutor roster API.
type Handler struct {
	Store *professorstore.Store
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Store: professorstore.New(db), Log: logger}
}

// createRequest is the payload for POST /professors.
type createRequest struct {
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone,omitempty"`
	SubjectIDs []string `json:"subject_ids,omitempty"`
}

// HandleCreate handles POST /professors.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}
	if req.Email == "" || req.LastName == "" {
		respond.BadRequest(w, "email and last_name are required")
		return
	}

	subjectIDs := make([]primitive.ObjectID, 0, len(req.SubjectIDs))
	for _, raw := range req.SubjectIDs {
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respond.BadRequest(w, "invalid subject id")
			return
		}
		subjectIDs = append(subjectIDs, oid)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create professor")
	defer cancel()

	prof, err := h.Store.Create(ctx, models.Professor{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		SubjectIDs: subjectIDs,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, prof)
}

// ServeList handles GET /professors, optionally filtered by
// ?subject=<id> to find tutors who teach a given subject.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if raw := r.URL.Query().Get("subject"); raw != "" {
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respond.BadRequest(w, "invalid subject id")
			return
		}
		filter["subject_ids"] = oid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list professors")
	defer cancel()

	profs, err := h.Store.Find(ctx, filter)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if profs == nil {
		profs = []models.Professor{}
	}
	respond.JSON(w, http.StatusOK, profs)
}

// ServeView handles GET /professors/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	oid, err := svcerrors.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "view professor")
	defer cancel()

	prof, err := h.Store.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, h.Log, svcerrors.ErrNotFound)
			return
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, prof)
}

// HandleDelete handles DELETE /professors/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	oid, err := svcerrors.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete professor")
	defer cancel()

	deleted, err := h.Store.Delete(ctx, oid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if deleted == 0 {
		respond.Error(w, h.Log, svcerrors.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
