package familyservice

import (
	"context"
	"errors"
	"testing"

	apptservice "github.com/edusuite/tutordesk/internal/app/service/appointments"
	"github.com/edusuite/tutordesk/internal/app/service/svcerrors"
	seriesstore "github.com/edusuite/tutordesk/internal/app/store/couponseries"
	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/domain/models"
	"github.com/edusuite/tutordesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *testutil.Fixtures, *cache.Cache) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := cache.New(cachekeys.DefaultPolicies())
	svc := New(db, c, zap.NewNop())
	return svc, testutil.NewFixtures(t, db), c
}

func TestCreateAndGet(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	admin := fx.CreateUser(ctx, "Alice", "Admin", "admin")

	view, err := svc.Create(ctx, models.Family{
		PrimaryContact: models.PrimaryContact{FirstName: "Jean", LastName: "Dupont"},
		CreatedByID:    admin.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Status != models.FamilyProspect {
		t.Errorf("new family status = %q, want %q", view.Status, models.FamilyProspect)
	}
	if view.CreatedByName != "Alice Admin" {
		t.Errorf("CreatedByName = %q, want resolved admin name", view.CreatedByName)
	}

	got, err := svc.Get(ctx, view.ID.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != view.ID {
		t.Errorf("Get returned id %s, want %s", got.ID.Hex(), view.ID.Hex())
	}
}

func TestCreatorResolvedFromUserCache(t *testing.T) {
	svc, fx, c := newTestService(t)
	ctx := context.Background()

	admin := fx.CreateUser(ctx, "Alice", "Admin", "admin")
	view, err := svc.Create(ctx, models.Family{
		PrimaryContact: models.PrimaryContact{LastName: "Bernard"},
		CreatedByID:    admin.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := c.Get(cachekeys.NSUsers, cachekeys.User(admin.ID)); !ok {
		t.Fatal("creator record not cached after aggregate build")
	}

	// Remove the user behind the cache's back and force a rebuild: the
	// cached record must keep resolving the display name.
	if _, err := fx.DB().Collection("users").DeleteOne(ctx, bson.M{"_id": admin.ID}); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := c.Invalidate(cachekeys.NSFamilies, cache.ExactKey(cachekeys.Family(view.ID))); err != nil {
		t.Fatalf("drop family detail: %v", err)
	}

	got, err := svc.Get(ctx, view.ID.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CreatedByName != "Alice Admin" {
		t.Errorf("CreatedByName = %q, want %q from the user cache", got.CreatedByName, "Alice Admin")
	}
}

func TestGetServedFromCache(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Cached")

	first, err := svc.Get(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// A write that bypasses the service must not show up while the
	// cached aggregate is fresh.
	_, err = fx.DB().Collection("families").UpdateByID(ctx, fam.ID,
		bson.M{"$set": bson.M{"primary_contact.last_name": "Changed"}})
	if err != nil {
		t.Fatalf("direct update: %v", err)
	}

	second, err := svc.Get(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("Get after direct write: %v", err)
	}
	if second.PrimaryContact.LastName != first.PrimaryContact.LastName {
		t.Errorf("second Get hit the store, want cached view")
	}
}

func TestGetErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "not-a-hex-id"); !errors.Is(err, svcerrors.ErrInvalidID) {
		t.Errorf("Get(bad id) err = %v, want ErrInvalidID", err)
	}
	if _, err := svc.Get(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, svcerrors.ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestUpdateContact(t *testing.T) {
	svc, fx, c := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Martin")

	// Warm the detail cache so the update has something to invalidate.
	if _, err := svc.Get(ctx, fam.ID.Hex()); err != nil {
		t.Fatalf("warm Get: %v", err)
	}

	view, err := svc.UpdateContact(ctx, fam.ID.Hex(), ContactUpdate{Email: "new@example.com"})
	if err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}
	if view.PrimaryContact.Email != "new@example.com" {
		t.Errorf("email = %q, want updated value", view.PrimaryContact.Email)
	}
	if view.PrimaryContact.LastName != "Martin" {
		t.Errorf("last name = %q, partial update must not clear other fields", view.PrimaryContact.LastName)
	}
	if _, ok := c.Get(cachekeys.NSFamilies, cachekeys.Family(fam.ID)); ok {
		t.Errorf("detail cache entry survived the update")
	}
}

func TestUpdateContactEmptyPayload(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Empty")
	if _, err := svc.UpdateContact(ctx, fam.ID.Hex(), ContactUpdate{}); !errors.Is(err, svcerrors.ErrEmptyUpdate) {
		t.Errorf("empty payload err = %v, want ErrEmptyUpdate", err)
	}
}

func TestUpdateContactNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateContact(ctx, primitive.NewObjectID().Hex(), ContactUpdate{Email: "x@example.com"})
	if !errors.Is(err, svcerrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateRequestZeroValues(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Request")
	hours := 4
	if _, err := svc.UpdateRequest(ctx, fam.ID.Hex(), RequestUpdate{HoursPerWeek: &hours}); err != nil {
		t.Fatalf("set hours: %v", err)
	}

	// A pointer to zero is an explicit reset, not an omitted field.
	zero := 0
	view, err := svc.UpdateRequest(ctx, fam.ID.Hex(), RequestUpdate{HoursPerWeek: &zero})
	if err != nil {
		t.Fatalf("reset hours: %v", err)
	}
	if view.HoursPerWeek != 0 {
		t.Errorf("hours = %d, want 0 after explicit reset", view.HoursPerWeek)
	}
}

func TestStudentLifecycle(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Pupils")

	st, err := svc.AddStudent(ctx, fam.ID.Hex(), models.Student{FirstName: "Emma", LastName: "Pupils"})
	if err != nil {
		t.Fatalf("AddStudent: %v", err)
	}
	if st.FamilyID != fam.ID {
		t.Errorf("student family id = %s, want %s", st.FamilyID.Hex(), fam.ID.Hex())
	}

	view, err := svc.Get(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(view.Students) != 1 || view.Students[0].FirstName != "Emma" {
		t.Fatalf("snapshot not embedded: %+v", view.Students)
	}

	updated, err := svc.UpdateStudent(ctx, st.ID.Hex(), StudentUpdate{Grade: "Terminale"})
	if err != nil {
		t.Fatalf("UpdateStudent: %v", err)
	}
	if updated.Grade != "Terminale" {
		t.Errorf("grade = %q, want updated value", updated.Grade)
	}

	view, err = svc.Get(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if view.Students[0].Grade != "Terminale" {
		t.Errorf("embedded snapshot grade = %q, want refreshed copy", view.Students[0].Grade)
	}

	if err := svc.RemoveStudent(ctx, st.ID.Hex()); err != nil {
		t.Fatalf("RemoveStudent: %v", err)
	}
	view, err = svc.Get(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("Get after remove: %v", err)
	}
	if len(view.Students) != 0 {
		t.Errorf("snapshot still embedded after removal: %+v", view.Students)
	}
}

func TestAddStudentFamilyNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddStudent(ctx, primitive.NewObjectID().Hex(), models.Student{FirstName: "X"})
	if !errors.Is(err, svcerrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCascade(t *testing.T) {
	svc, fx, c := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Doomed")
	st := fx.CreateStudent(ctx, fam.ID, "Leo")
	note := fx.CreateNote(ctx, fam.ID, "A1", "A2")
	fx.CreateAppointment(ctx, fam.ID, nil)

	series := seriesstore.New(fx.DB())
	if _, err := series.CreateForNote(ctx, note); err != nil {
		t.Fatalf("seed coupon series: %v", err)
	}
	_, err := fx.DB().Collection("students").UpdateByID(ctx, st.ID,
		bson.M{"$addToSet": bson.M{"settlement_note_ids": note.ID}})
	if err != nil {
		t.Fatalf("seed student back-ref: %v", err)
	}

	res, err := svc.Delete(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.NotesDeleted != 1 {
		t.Errorf("NotesDeleted = %d, want 1", res.NotesDeleted)
	}
	if res.AppointmentsDeleted != 1 {
		t.Errorf("AppointmentsDeleted = %d, want 1", res.AppointmentsDeleted)
	}

	for _, coll := range []string{"families", "settlement_notes", "appointments", "coupon_series", "coupons"} {
		n, err := fx.DB().Collection(coll).CountDocuments(ctx, bson.M{})
		if err != nil {
			t.Fatalf("count %s: %v", coll, err)
		}
		if n != 0 {
			t.Errorf("%s still holds %d documents after cascade", coll, n)
		}
	}

	var orphan models.Student
	if err := fx.DB().Collection("students").FindOne(ctx, bson.M{"_id": st.ID}).Decode(&orphan); err != nil {
		t.Fatalf("reload student: %v", err)
	}
	if len(orphan.SettlementNoteIDs) != 0 {
		t.Errorf("student keeps note back-refs after cascade: %v", orphan.SettlementNoteIDs)
	}

	if _, ok := c.Get(cachekeys.NSFamilies, cachekeys.Family(fam.ID)); ok {
		t.Errorf("deleted family still cached")
	}
}

func TestDeleteDropsCachedAppointmentList(t *testing.T) {
	svc, fx, c := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Calendar")
	fx.CreateAppointment(ctx, fam.ID, nil)

	appts := apptservice.New(fx.DB(), c, zap.NewNop())
	warmed, err := appts.ByFamily(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("ByFamily: %v", err)
	}
	if len(warmed) != 1 {
		t.Fatalf("ByFamily returned %d, want 1", len(warmed))
	}

	if _, err := svc.Delete(ctx, fam.ID.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := c.Get(cachekeys.NSAppointments, cachekeys.AppointmentList(fam.ID)); ok {
		t.Errorf("deleted family's appointment list still cached")
	}
	after, err := appts.ByFamily(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("ByFamily after delete: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("ByFamily returned %d appointments after family deletion, want 0", len(after))
	}
}

func TestDeleteNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Delete(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, svcerrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListAndStatsCached(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fx.CreateFamily(ctx, "One")
	fx.CreateFamily(ctx, "Two")

	fams, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(fams) != 2 {
		t.Fatalf("List returned %d families, want 2", len(fams))
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.ByStatus[models.FamilyProspect] != 2 {
		t.Errorf("prospect count = %d, want 2", stats.ByStatus[models.FamilyProspect])
	}

	// Both views are now cached; a bypassing write must not appear.
	fx.CreateFamily(ctx, "Three")
	fams, err = svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List again: %v", err)
	}
	if len(fams) != 2 {
		t.Errorf("List returned %d families, want stale cached page of 2", len(fams))
	}
}

func TestCreateInvalidatesListAndStats(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fx.CreateFamily(ctx, "Before")
	if _, err := svc.List(ctx, 1); err != nil {
		t.Fatalf("warm List: %v", err)
	}
	if _, err := svc.Stats(ctx); err != nil {
		t.Fatalf("warm Stats: %v", err)
	}

	if _, err := svc.Create(ctx, models.Family{
		PrimaryContact: models.PrimaryContact{LastName: "After"},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	fams, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(fams) != 2 {
		t.Errorf("List returned %d families, want 2 after invalidation", len(fams))
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ByStatus[models.FamilyProspect] != 2 {
		t.Errorf("prospect count = %d, want 2 after invalidation", stats.ByStatus[models.FamilyProspect])
	}
}
