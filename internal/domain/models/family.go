// internal/domain/models/family.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Family status values. A family starts as a prospect and becomes a
// client once it has at least one settlement note.
const (
	FamilyProspect = "prospect"
	FamilyClient   = "client"
)

// Ref is a lightweight id-only reference embedded on an aggregate root.
// Traversal code must use these refs, never the denormalized snapshots.
type Ref struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`
}

// PrimaryContact holds the household contact person.
type PrimaryContact struct {
	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone" json:"phone"`
}

// Address is the family's postal address.
type Address struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
}

// CompanyInfo is set when the payer is a company rather than a person.
type CompanyInfo struct {
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	SIRET   string `bson:"siret,omitempty" json:"siret,omitempty"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`
}

// LessonRequest captures what the family is asking for: subjects and
// expected volume. Subject ids are resolved to names when the aggregate
// view is built.
type LessonRequest struct {
	SubjectIDs   []primitive.ObjectID `bson:"subject_ids" json:"subject_ids"`
	HoursPerWeek int                  `bson:"hours_per_week,omitempty" json:"hours_per_week,omitempty"`
	Notes        string               `bson:"notes,omitempty" json:"notes,omitempty"`
}

// EmbeddedStudent is a denormalized snapshot of a Student carried on the
// Family document. The canonical record lives in the students collection;
// the snapshot is a read optimization only.
type EmbeddedStudent struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FirstName string             `bson:"first_name" json:"first_name"`
	LastName  string             `bson:"last_name" json:"last_name"`
	Grade     string             `bson:"grade,omitempty" json:"grade,omitempty"`
	School    string             `bson:"school,omitempty" json:"school,omitempty"`
}

// Family is the aggregate root for a household.
//
// Invariant: every id in SettlementNoteRefs corresponds to a
// SettlementNote whose FamilyID equals this family's ID, and vice versa.
// The consistency services maintain this; nothing else may write the
// ref arrays.
type Family struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	PrimaryContact PrimaryContact     `bson:"primary_contact" json:"primary_contact"`
	Address        Address            `bson:"address" json:"address"`
	Company        CompanyInfo        `bson:"company,omitempty" json:"company,omitempty"`
	Request        LessonRequest      `bson:"request" json:"request"`

	Status string `bson:"status" json:"status"` // prospect | client

	Students           []EmbeddedStudent `bson:"students" json:"students"`
	SettlementNoteRefs []Ref             `bson:"settlement_note_refs" json:"settlement_note_refs"`
	AppointmentRefs    []Ref             `bson:"appointment_refs" json:"appointment_refs"`

	CreatedByID primitive.ObjectID `bson:"created_by_id,omitempty" json:"created_by_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ContactName returns the display name of the primary contact.
func (f *Family) ContactName() string {
	if f.PrimaryContact.FirstName == "" {
		return f.PrimaryContact.LastName
	}
	return f.PrimaryContact.FirstName + " " + f.PrimaryContact.LastName
}
