// internal/domain/models/couponseries.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CouponSeries is the normalized shadow of a note's coupon batch, kept
// for the older reporting path that addresses coupons row by row.
//
// Invariant: UsedCoupons never exceeds TotalCoupons.
type CouponSeries struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	SettlementNoteID primitive.ObjectID `bson:"settlement_note_id" json:"settlement_note_id"`
	FamilyID         primitive.ObjectID `bson:"family_id" json:"family_id"`

	TotalCoupons int `bson:"total_coupons" json:"total_coupons"`
	UsedCoupons  int `bson:"used_coupons" json:"used_coupons"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CouponRow is one individually addressable coupon in the normalized
// model. It mirrors an embedded Coupon on the owning settlement note.
type CouponRow struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	SeriesID primitive.ObjectID `bson:"series_id" json:"series_id"`
	Code     string             `bson:"code" json:"code"`
	Status   string             `bson:"status" json:"status"` // available | used | deleted

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
