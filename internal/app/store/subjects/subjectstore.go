// internal/app/store/subjects/subjectstore.go
package subjectstore

import (
	"context"

	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("subjects")}
}

func (s *Store) Create(ctx context.Context, sub models.Subject) (models.Subject, error) {
	sub.ID = primitive.NewObjectID()
	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		return models.Subject{}, err
	}
	return sub, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Subject, error) {
	var sub models.Subject
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if err != nil {
		return models.Subject{}, err
	}
	return sub, nil
}

// GetByIDs loads multiple subjects by their ObjectIDs.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var subs []models.Subject
	if err := cur.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// All returns every subject.
func (s *Store) All(ctx context.Context) ([]models.Subject, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var subs []models.Subject
	if err := cur.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
