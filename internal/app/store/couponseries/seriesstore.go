// internal/app/store/couponseries/seriesstore.go
package seriesstore

import (
	"context"
	"errors"
	"time"

	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrSeriesExhausted is returned when a redemption would push
// used_coupons past total_coupons.
var ErrSeriesExhausted = errors.New("coupon series has no remaining coupons")

// Store manages the normalized coupon model: one series document per
// settlement note plus one row per coupon. The older reporting path
// reads these; the embedded coupons on the note stay the source of truth.
type Store struct {
	series  *mongo.Collection
	coupons *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		series:  db.Collection("coupon_series"),
		coupons: db.Collection("coupons"),
	}
}

// CreateForNote writes the series document and one row per embedded
// coupon.
func (s *Store) CreateForNote(ctx context.Context, note models.SettlementNote) (models.CouponSeries, error) {
	now := time.Now().UTC()
	series := models.CouponSeries{
		ID:               primitive.NewObjectID(),
		SettlementNoteID: note.ID,
		FamilyID:         note.FamilyID,
		TotalCoupons:     len(note.Coupons),
		UsedCoupons:      0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.series.InsertOne(ctx, series); err != nil {
		return models.CouponSeries{}, err
	}

	if len(note.Coupons) == 0 {
		return series, nil
	}
	rows := make([]any, 0, len(note.Coupons))
	for _, c := range note.Coupons {
		rows = append(rows, models.CouponRow{
			ID:        c.ID,
			SeriesID:  series.ID,
			Code:      c.Code,
			Status:    c.Status,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if _, err := s.coupons.InsertMany(ctx, rows); err != nil {
		return models.CouponSeries{}, err
	}
	return series, nil
}

// ByNote returns the series for one settlement note.
func (s *Store) ByNote(ctx context.Context, noteID primitive.ObjectID) (models.CouponSeries, error) {
	var series models.CouponSeries
	err := s.series.FindOne(ctx, bson.M{"settlement_note_id": noteID}).Decode(&series)
	if err != nil {
		return models.CouponSeries{}, err
	}
	return series, nil
}

// Rows returns the coupon rows of one series.
func (s *Store) Rows(ctx context.Context, seriesID primitive.ObjectID) ([]models.CouponRow, error) {
	cur, err := s.coupons.Find(ctx, bson.M{"series_id": seriesID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.CouponRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkUsed flips one coupon row to used and bumps the series counter.
// The filtered $inc keeps used_coupons from ever exceeding
// total_coupons, even under concurrent redemptions.
func (s *Store) MarkUsed(ctx context.Context, seriesID, couponID primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.series.UpdateOne(ctx,
		bson.M{
			"_id":   seriesID,
			"$expr": bson.M{"$lt": bson.A{"$used_coupons", "$total_coupons"}},
		},
		bson.M{
			"$inc": bson.M{"used_coupons": 1},
			"$set": bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrSeriesExhausted
	}

	_, err = s.coupons.UpdateOne(ctx,
		bson.M{"_id": couponID, "series_id": seriesID},
		bson.M{"$set": bson.M{
			"status":     models.CouponUsed,
			"updated_at": now,
		}},
	)
	return err
}

// DeleteByNote removes the series and all its coupon rows for one
// settlement note. Returns the number of coupon rows removed.
func (s *Store) DeleteByNote(ctx context.Context, noteID primitive.ObjectID) (int64, error) {
	var series models.CouponSeries
	err := s.series.FindOne(ctx, bson.M{"settlement_note_id": noteID}).Decode(&series)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	res, err := s.coupons.DeleteMany(ctx, bson.M{"series_id": series.ID})
	if err != nil {
		return 0, err
	}
	if _, err := s.series.DeleteOne(ctx, bson.M{"_id": series.ID}); err != nil {
		return res.DeletedCount, err
	}
	return res.DeletedCount, nil
}
