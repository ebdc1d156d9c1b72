// internal/app/store/families/familystore.go
package familystore

import (
	"context"
	"time"

	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("families")}
}

func (s *Store) Create(ctx context.Context, fam models.Family) (models.Family, error) {
	now := time.Now().UTC()
	fam.ID = primitive.NewObjectID()
	if fam.Status == "" {
		fam.Status = models.FamilyProspect
	}
	if fam.Students == nil {
		fam.Students = []models.EmbeddedStudent{}
	}
	if fam.SettlementNoteRefs == nil {
		fam.SettlementNoteRefs = []models.Ref{}
	}
	if fam.AppointmentRefs == nil {
		fam.AppointmentRefs = []models.Ref{}
	}
	fam.CreatedAt = now
	fam.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, fam); err != nil {
		return models.Family{}, err
	}
	return fam, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Family, error) {
	var fam models.Family
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&fam)
	if err != nil {
		return models.Family{}, err
	}
	return fam, nil
}

// SetFields applies a whitelisted partial update built by the service
// layer and refreshes UpdatedAt. The set document must never contain
// the ref arrays; those are owned by the cascade operations.
func (s *Store) SetFields(ctx context.Context, id primitive.ObjectID, set bson.M) (int64, error) {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// SetStatus changes the prospect/client status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// AddSettlementNoteRef appends a note reference to the family.
func (s *Store) AddSettlementNoteRef(ctx context.Context, familyID, noteID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, familyID, bson.M{
		"$push": bson.M{"settlement_note_refs": models.Ref{ID: noteID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveSettlementNoteRef removes a note reference from the family.
func (s *Store) RemoveSettlementNoteRef(ctx context.Context, familyID, noteID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, familyID, bson.M{
		"$pull": bson.M{"settlement_note_refs": bson.M{"_id": noteID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// AddAppointmentRef appends an appointment reference to the family.
func (s *Store) AddAppointmentRef(ctx context.Context, familyID, apptID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, familyID, bson.M{
		"$push": bson.M{"appointment_refs": models.Ref{ID: apptID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveAppointmentRef removes an appointment reference from the family.
func (s *Store) RemoveAppointmentRef(ctx context.Context, familyID, apptID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, familyID, bson.M{
		"$pull": bson.M{"appointment_refs": bson.M{"_id": apptID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// AddStudentSnapshot embeds a denormalized student copy on the family.
func (s *Store) AddStudentSnapshot(ctx context.Context, familyID primitive.ObjectID, snap models.EmbeddedStudent) error {
	_, err := s.c.UpdateByID(ctx, familyID, bson.M{
		"$push": bson.M{"students": snap},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// ReplaceStudentSnapshot rewrites one embedded student copy in place.
func (s *Store) ReplaceStudentSnapshot(ctx context.Context, familyID primitive.ObjectID, snap models.EmbeddedStudent) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": familyID, "students._id": snap.ID},
		bson.M{"$set": bson.M{
			"students.$": snap,
			"updated_at": time.Now().UTC(),
		}},
	)
	return err
}

// RemoveStudentSnapshot drops one embedded student copy.
func (s *Store) RemoveStudentSnapshot(ctx context.Context, familyID, studentID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, familyID, bson.M{
		"$pull": bson.M{"students": bson.M{"_id": studentID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Delete removes a family by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Find returns families matching the given filter with optional find options.
// The caller builds the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Family, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var fams []models.Family
	if err := cur.All(ctx, &fams); err != nil {
		return nil, err
	}
	return fams, nil
}

// Count returns the number of families matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// CountByStatus computes family counts grouped by status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
