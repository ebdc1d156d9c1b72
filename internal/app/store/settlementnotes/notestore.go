// internal/app/store/settlementnotes/notestore.go
package notestore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateCode = errors.New("a coupon with this code already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("settlement_notes")}
}

// Create inserts a settlement note with its coupon batch already
// embedded. The unique index on coupons.code turns a duplicate code
// into ErrDuplicateCode; with sequence-based issuance that indicates a
// corrupted counter, not a normal race.
func (s *Store) Create(ctx context.Context, note models.SettlementNote) (models.SettlementNote, error) {
	now := time.Now().UTC()
	note.ID = primitive.NewObjectID()
	if note.StudentIDs == nil {
		note.StudentIDs = []primitive.ObjectID{}
	}
	if note.Coupons == nil {
		note.Coupons = []models.Coupon{}
	}
	note.CreatedAt = now
	note.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, note); err != nil {
		if wafflemongo.IsDup(err) {
			return models.SettlementNote{}, ErrDuplicateCode
		}
		return models.SettlementNote{}, err
	}
	return note, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.SettlementNote, error) {
	var note models.SettlementNote
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&note)
	if err != nil {
		return models.SettlementNote{}, err
	}
	return note, nil
}

// ByFamily returns all settlement notes owned by one family.
func (s *Store) ByFamily(ctx context.Context, familyID primitive.ObjectID) ([]models.SettlementNote, error) {
	cur, err := s.c.Find(ctx, bson.M{"family_id": familyID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var notes []models.SettlementNote
	if err := cur.All(ctx, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// SetCouponStatus flips one embedded coupon's status and stamps it.
// Returns the number of notes modified (0 when the coupon id is unknown).
func (s *Store) SetCouponStatus(ctx context.Context, noteID, couponID primitive.ObjectID, status string) (int64, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": noteID, "coupons._id": couponID},
		bson.M{"$set": bson.M{
			"coupons.$.status":     status,
			"coupons.$.updated_at": time.Now().UTC(),
			"updated_at":           time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes a settlement note by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByFamily removes every note owned by one family. Returns the
// number deleted.
func (s *Store) DeleteByFamily(ctx context.Context, familyID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"family_id": familyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Find returns notes matching the given filter with optional find options.
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.SettlementNote, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var notes []models.SettlementNote
	if err := cur.All(ctx, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// Count returns the number of notes matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// MonthlyTotals computes note counts and coupon volumes grouped by
// creation month, most recent first.
func (s *Store) MonthlyTotals(ctx context.Context, months int) ([]MonthlyTotal, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "year", Value: bson.D{{Key: "$year", Value: "$created_at"}}},
				{Key: "month", Value: bson.D{{Key: "$month", Value: "$created_at"}}},
			}},
			{Key: "notes", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "coupons", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "_id.year", Value: -1},
			{Key: "_id.month", Value: -1},
		}}},
		bson.D{{Key: "$limit", Value: months}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var totals []MonthlyTotal
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				Year  int `bson:"year"`
				Month int `bson:"month"`
			} `bson:"_id"`
			Notes   int64 `bson:"notes"`
			Coupons int64 `bson:"coupons"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		totals = append(totals, MonthlyTotal{
			Year:    row.ID.Year,
			Month:   row.ID.Month,
			Notes:   row.Notes,
			Coupons: row.Coupons,
		})
	}
	return totals, cur.Err()
}

// MonthlyTotal is one row of the settlement-note stats view.
type MonthlyTotal struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Notes   int64 `json:"notes"`
	Coupons int64 `json:"coupons"`
}
