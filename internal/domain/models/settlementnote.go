// internal/domain/models/settlementnote.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon status values.
const (
	CouponAvailable = "available"
	CouponUsed      = "used"
	CouponDeleted   = "deleted"
)

// Coupon is a single redeemable unit of lesson time embedded on a
// settlement note. Codes are unique across the whole system.
type Coupon struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Code      string             `bson:"code" json:"code"`
	Status    string             `bson:"status" json:"status"` // available | used | deleted
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// SettlementNote (NDR) is a billing document that authorizes a block of
// lessons for one family. The coupon batch is embedded at creation time
// and its length always equals Quantity.
type SettlementNote struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FamilyID primitive.ObjectID `bson:"family_id" json:"family_id"`

	// Reference is the stable public identifier printed on documents,
	// independent of the Mongo id.
	Reference string `bson:"reference" json:"reference"`

	// StudentIDs lists the beneficiaries of this note.
	StudentIDs []primitive.ObjectID `bson:"student_ids" json:"student_ids"`

	Quantity   int      `bson:"quantity" json:"quantity"`
	HourlyRate float64  `bson:"hourly_rate,omitempty" json:"hourly_rate,omitempty"`
	Coupons    []Coupon `bson:"coupons" json:"coupons"`

	CreatedByID primitive.ObjectID `bson:"created_by_id,omitempty" json:"created_by_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AvailableCoupons counts coupons still redeemable on this note.
func (n *SettlementNote) AvailableCoupons() int {
	count := 0
	for _, c := range n.Coupons {
		if c.Status == CouponAvailable {
			count++
		}
	}
	return count
}
