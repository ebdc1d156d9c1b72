// internal/app/store/students/studentstore.go
package studentstore

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
	return &Store{c: db.Collection("students")}
}

func (s *Store) Create(ctx context.Context, st models.Student) (models.Student, error) {
	now := time.Now().UTC()
	st.ID = primitive.NewObjectID()
	if st.SettlementNoteIDs == nil {
		st.SettlementNoteIDs = []primitive.ObjectID{}
	}
	st.CreatedAt = now
	st.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, st); err != nil {
		return models.Student{}, err
	}
	return st, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Student, error) {
	var st models.Student
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&st)
	if err != nil {
		return models.Student{}, err
	}
	return st, nil
}

// ByFamily returns all students belonging to one family.
func (s *Store) ByFamily(ctx context.Context, familyID primitive.ObjectID) ([]models.Student, error) {
	cur, err := s.c.Find(ctx, bson.M{"family_id": familyID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var students []models.Student
	if err := cur.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// SetFields applies a whitelisted partial update and refreshes UpdatedAt.
func (s *Store) SetFields(ctx context.Context, id primitive.ObjectID, set bson.M) (int64, error) {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// AddNoteRef records a settlement note on the given students'
// back-reference lists.
func (s *Store) AddNoteRef(ctx context.Context, studentIDs []primitive.ObjectID, noteID primitive.ObjectID) error {
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": studentIDs}},
		bson.M{
			"$addToSet": bson.M{"settlement_note_ids": noteID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

// RemoveNoteRef strips a settlement note id from every student that
// referenced it. Returns the number of students updated.
func (s *Store) RemoveNoteRef(ctx context.Context, noteID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"settlement_note_ids": noteID},
		bson.M{
			"$pull": bson.M{"settlement_note_ids": noteID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes a student by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
