// internal/domain/models/appointment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Appointment is a scheduled meeting between an admin and a family.
type Appointment struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FamilyID primitive.ObjectID `bson:"family_id" json:"family_id"`

	// AdminID is the assigned back-office user; may be unset while the
	// appointment is unassigned.
	AdminID *primitive.ObjectID `bson:"admin_id,omitempty" json:"admin_id,omitempty"`

	ScheduledAt time.Time `bson:"scheduled_at" json:"scheduled_at"`
	Location    string    `bson:"location,omitempty" json:"location,omitempty"`
	Notes       string    `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
