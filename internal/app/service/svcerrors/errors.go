// internal/app/service/svcerrors/errors.go

// Package svcerrors defines the error taxonomy shared by the
// coordinator services, so HTTP handlers can map outcomes to status
// codes with errors.Is/As instead of string matching.
package svcerrors

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidID marks a malformed id. Distinct from ErrNotFound so
	// callers can answer 400 instead of 404.
	ErrInvalidID = errors.New("invalid id")

	// ErrNotFound marks a well-formed id with no matching record.
	ErrNotFound = errors.New("not found")

	// ErrEmptyUpdate marks a partial update that resolved to zero
	// effective fields. Rejected before any store access.
	ErrEmptyUpdate = errors.New("update contains no fields")
)

// ParseID validates and decodes a hex ObjectID, wrapping shape problems
// in ErrInvalidID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}

// CascadeError reports a multi-step mutation that failed after earlier
// steps had already committed. There is no automatic compensation; the
// fields carry enough context for a manual reconciliation pass.
type CascadeError struct {
	Op       string // operation name, e.g. "delete_settlement_note"
	EntityID string
	Step     string // the step that failed
	Err      error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("%s: step %q failed for %s: %v", e.Op, e.Step, e.EntityID, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }
