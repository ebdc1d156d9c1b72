// internal/domain/models/student.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student is the canonical record for a pupil. A student belongs to
// exactly one family.
//
// Invariant: SettlementNoteIDs is always a subset of the ids of
// settlement notes whose beneficiary list includes this student. The
// note service keeps the back-reference list in sync.
type Student struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FamilyID  primitive.ObjectID `bson:"family_id" json:"family_id"`
	FirstName string             `bson:"first_name" json:"first_name"`
	LastName  string             `bson:"last_name" json:"last_name"`
	Grade     string             `bson:"grade,omitempty" json:"grade,omitempty"`
	School    string             `bson:"school,omitempty" json:"school,omitempty"`

	// Back-references to settlement notes naming this student as a
	// beneficiary.
	SettlementNoteIDs []primitive.ObjectID `bson:"settlement_note_ids" json:"settlement_note_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Snapshot returns the denormalized copy embedded on the Family document.
func (s *Student) Snapshot() EmbeddedStudent {
	return EmbeddedStudent{
		ID:        s.ID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Grade:     s.Grade,
		School:    s.School,
	}
}
