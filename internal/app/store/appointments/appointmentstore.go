// internal/app/store/appointments/appointmentstore.go
package appointmentstore

import (
	"context"
	"time"

	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("appointments")}
}

func (s *Store) Create(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	now := time.Now().UTC()
	appt.ID = primitive.NewObjectID()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, appt); err != nil {
		return models.Appointment{}, err
	}
	return appt, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Appointment, error) {
	var appt models.Appointment
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&appt)
	if err != nil {
		return models.Appointment{}, err
	}
	return appt, nil
}

// GetByIDs loads multiple appointments by their ObjectIDs.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Appointment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var appts []models.Appointment
	if err := cur.All(ctx, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// ByFamily returns all appointments for one family, soonest first.
func (s *Store) ByFamily(ctx context.Context, familyID primitive.ObjectID) ([]models.Appointment, error) {
	cur, err := s.c.Find(ctx, bson.M{"family_id": familyID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var appts []models.Appointment
	if err := cur.All(ctx, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// Delete removes an appointment by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByFamily removes every appointment of one family. Returns the
// number deleted.
func (s *Store) DeleteByFamily(ctx context.Context, familyID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"family_id": familyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
