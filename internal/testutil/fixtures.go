package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/edusuite/tutordesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateFamily inserts a prospect family with the given contact last
// name and returns it.
func (f *Fixtures) CreateFamily(ctx context.Context, lastName string) models.Family {
	f.t.Helper()

	now := time.Now().UTC()
	fam := models.Family{
		ID: primitive.NewObjectID(),
		PrimaryContact: models.PrimaryContact{
			FirstName: "Test",
			LastName:  lastName,
			Email:     lastName + "@example.com",
			Phone:     "0600000000",
		},
		Address: models.Address{
			Street:     "1 rue du Test",
			City:       "Paris",
			PostalCode: "75001",
		},
		Status:             models.FamilyProspect,
		Students:           []models.EmbeddedStudent{},
		SettlementNoteRefs: []models.Ref{},
		AppointmentRefs:    []models.Ref{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := f.db.Collection("families").InsertOne(ctx, fam); err != nil {
		f.t.Fatalf("insert fixture family: %v", err)
	}
	return fam
}

// CreateStudent inserts a canonical student record for the family.
func (f *Fixtures) CreateStudent(ctx context.Context, familyID primitive.ObjectID, firstName string) models.Student {
	f.t.Helper()

	now := time.Now().UTC()
	st := models.Student{
		ID:                primitive.NewObjectID(),
		FamilyID:          familyID,
		FirstName:         firstName,
		LastName:          "Student",
		Grade:             "3e",
		SettlementNoteIDs: []primitive.ObjectID{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if _, err := f.db.Collection("students").InsertOne(ctx, st); err != nil {
		f.t.Fatalf("insert fixture student: %v", err)
	}
	return st
}

// CreateNote inserts a settlement note with the given coupon codes, all
// available.
func (f *Fixtures) CreateNote(ctx context.Context, familyID primitive.ObjectID, codes ...string) models.SettlementNote {
	f.t.Helper()

	now := time.Now().UTC()
	coupons := make([]models.Coupon, 0, len(codes))
	for _, code := range codes {
		coupons = append(coupons, models.Coupon{
			ID:        primitive.NewObjectID(),
			Code:      code,
			Status:    models.CouponAvailable,
			UpdatedAt: now,
		})
	}
	note := models.SettlementNote{
		ID:         primitive.NewObjectID(),
		FamilyID:   familyID,
		Reference:  "test-" + primitive.NewObjectID().Hex(),
		StudentIDs: []primitive.ObjectID{},
		Quantity:   len(codes),
		Coupons:    coupons,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("settlement_notes").InsertOne(ctx, note); err != nil {
		f.t.Fatalf("insert fixture note: %v", err)
	}
	return note
}

// CreateUser inserts a back-office user account.
func (f *Fixtures) CreateUser(ctx context.Context, firstName, lastName, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     firstName + "." + lastName + "@example.com",
		Role:      role,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("insert fixture user: %v", err)
	}
	return u
}

// CreateSubject inserts a teachable subject.
func (f *Fixtures) CreateSubject(ctx context.Context, name string) models.Subject {
	f.t.Helper()

	sub := models.Subject{ID: primitive.NewObjectID(), Name: name}
	if _, err := f.db.Collection("subjects").InsertOne(ctx, sub); err != nil {
		f.t.Fatalf("insert fixture subject: %v", err)
	}
	return sub
}

// CreateAppointment inserts an appointment for the family, optionally
// assigned to an admin.
func (f *Fixtures) CreateAppointment(ctx context.Context, familyID primitive.ObjectID, adminID *primitive.ObjectID) models.Appointment {
	f.t.Helper()

	now := time.Now().UTC()
	appt := models.Appointment{
		ID:          primitive.NewObjectID(),
		FamilyID:    familyID,
		AdminID:     adminID,
		ScheduledAt: now.Add(24 * time.Hour),
		Location:    "Agency office",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("appointments").InsertOne(ctx, appt); err != nil {
		f.t.Fatalf("insert fixture appointment: %v", err)
	}
	return appt
}
