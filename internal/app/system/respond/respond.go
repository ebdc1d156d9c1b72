// Package respond centralizes JSON response and error rendering for the
// API handlers. Service errors map to stable status codes so clients
// can branch on them.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edusuite/tutordesk/internal/app/service/svcerrors"
	"go.uber.org/zap"
)

// errorBody is the JSON structure for error responses.
type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps a service error to an HTTP status and writes it. Unmapped
// errors become 500s with a generic body; the detail goes to the log,
// not the client.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, svcerrors.ErrInvalidID):
		JSON(w, http.StatusBadRequest, errorBody{Error: "invalid id"})
	case errors.Is(err, svcerrors.ErrEmptyUpdate):
		JSON(w, http.StatusBadRequest, errorBody{Error: "no updatable fields in payload"})
	case errors.Is(err, svcerrors.ErrNotFound):
		JSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		var cerr *svcerrors.CascadeError
		if errors.As(err, &cerr) {
			log.Error("request failed mid-cascade",
				zap.String("op", cerr.Op),
				zap.String("entity_id", cerr.EntityID),
				zap.String("step", cerr.Step),
				zap.Error(cerr.Err))
		} else {
			log.Error("request failed", zap.Error(err))
		}
		JSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// BadRequest writes a 400 with the given message for handler-level
// validation failures (malformed JSON, domain rule violations).
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// Conflict writes a 409 for state-rule violations such as redeeming an
// unavailable coupon.
func Conflict(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusConflict, errorBody{Error: msg})
}
