// internal/domain/models/subject.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subject is a teachable discipline (maths, physics, ...).
type Subject struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}
