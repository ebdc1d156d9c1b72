package subjects

import (
	"encoding/json"
	"net/http"

	subjectstore "github.com/edusuite/tutordesk/internal/app/store/subjects"
	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/app/system/respond"
	"github.com/edusuite/tutordesk/internal/app/system/timeouts"
	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the subject catalog.
type Handler struct {
	Store *subjectstore.Store
	Cache *cache.Cache
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, c *cache.Cache, logger *zap.Logger) *Handler {
	return &Handler{Store: subjectstore.New(db), Cache: c, Log: logger}
}

// ServeList handles GET /subjects. The catalog changes rarely, so it is
// served through the long-TTL subjects namespace.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.Cache.Get(cachekeys.NSSubjects, cachekeys.SubjectList); ok {
		if subs, ok := cached.([]models.Subject); ok {
			respond.JSON(w, http.StatusOK, subs)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list subjects")
	defer cancel()

	subs, err := h.Store.All(ctx)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if subs == nil {
		subs = []models.Subject{}
	}
	if err := h.Cache.Set(cachekeys.NSSubjects, cachekeys.SubjectList, cache.KindList, subs); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, subs)
}

// HandleCreate handles POST /subjects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed JSON body")
		return
	}
	if req.Name == "" {
		respond.BadRequest(w, "name is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create subject")
	defer cancel()

	sub, err := h.Store.Create(ctx, models.Subject{Name: req.Name})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if _, err := h.Cache.Clear(cachekeys.NSSubjects); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, sub)
}
