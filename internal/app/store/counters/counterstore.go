// internal/app/store/counters/counterstore.go
package counterstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CouponSequence is the counter backing coupon code issuance.
const CouponSequence = "coupon_codes"

var ErrInvalidBlockSize = errors.New("counter block size must be positive")

// Store manages named monotonic sequences. Reservation is a single
// atomic $inc, so two concurrent callers can never observe overlapping
// blocks.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("counters")}
}

// Next reserves a contiguous block of n values from the named sequence
// and returns the first value of the block. Values start at 1. The
// counter document is created on first use.
func (s *Store) Next(ctx context.Context, name string, n int64) (int64, error) {
	if n <= 0 {
		return 0, ErrInvalidBlockSize
	}

	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": n}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value - n + 1, nil
}

// Current returns the last value handed out from the named sequence,
// or 0 when the sequence has never been used.
func (s *Store) Current(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}
