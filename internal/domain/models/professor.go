// internal/domain/models/professor.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Professor is a tutor on the agency's roster.
type Professor struct {
	ID         primitive.ObjectID   `bson:"_id" json:"id"`
	FirstName  string               `bson:"first_name" json:"first_name"`
	LastName   string               `bson:"last_name" json:"last_name"`
	Email      string               `bson:"email" json:"email"`
	Phone      string               `bson:"phone,omitempty" json:"phone,omitempty"`
	SubjectIDs []primitive.ObjectID `bson:"subject_ids" json:"subject_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
