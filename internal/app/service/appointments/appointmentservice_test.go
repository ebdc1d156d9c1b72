package apptservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edusuite/tutordesk/internal/app/service/svcerrors"
	familystore "github.com/edusuite/tutordesk/internal/app/store/families"
	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/testutil"
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

func TestCreateAndDeleteMaintainFamilyRefs(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Meetings")

	appt, err := svc.Create(ctx, fam.ID.Hex(), CreateInput{
		ScheduledAt: time.Now().UTC().Add(48 * time.Hour),
		Location:    "Agency office",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	fams := familystore.New(fx.DB())
	reloaded, err := fams.GetByID(ctx, fam.ID)
	if err != nil {
		t.Fatalf("reload family: %v", err)
	}
	if len(reloaded.AppointmentRefs) != 1 || reloaded.AppointmentRefs[0].ID != appt.ID {
		t.Errorf("family appointment refs = %+v, want the new appointment", reloaded.AppointmentRefs)
	}

	if err := svc.Delete(ctx, appt.ID.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	reloaded, err = fams.GetByID(ctx, fam.ID)
	if err != nil {
		t.Fatalf("reload family: %v", err)
	}
	if len(reloaded.AppointmentRefs) != 0 {
		t.Errorf("family keeps refs after delete: %+v", reloaded.AppointmentRefs)
	}
}

func TestCreateRejectsPastSchedule(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Past")
	_, err := svc.Create(ctx, fam.ID.Hex(), CreateInput{
		ScheduledAt: time.Now().UTC().Add(-time.Hour),
	})
	if !errors.Is(err, ErrScheduleInPast) {
		t.Errorf("err = %v, want ErrScheduleInPast", err)
	}
}

func TestCreateFamilyNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, primitive.NewObjectID().Hex(), CreateInput{
		ScheduledAt: time.Now().UTC().Add(time.Hour),
	})
	if !errors.Is(err, svcerrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestByFamilyCachedListInvalidatedOnCreate(t *testing.T) {
	svc, fx, _ := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Agenda")
	fx.CreateAppointment(ctx, fam.ID, nil)

	appts, err := svc.ByFamily(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("ByFamily: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("ByFamily returned %d, want 1", len(appts))
	}

	if _, err := svc.Create(ctx, fam.ID.Hex(), CreateInput{
		ScheduledAt: time.Now().UTC().Add(time.Hour),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	appts, err = svc.ByFamily(ctx, fam.ID.Hex())
	if err != nil {
		t.Fatalf("ByFamily after create: %v", err)
	}
	if len(appts) != 2 {
		t.Errorf("ByFamily returned %d, want 2 after invalidation", len(appts))
	}
}

func TestCreateDropsCachedFamilyViews(t *testing.T) {
	svc, fx, c := newTestService(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Views")

	// List pages and the stats view embed the family's ref arrays, so a
	// new appointment makes them stale just like the detail entry.
	if err := c.Set(cachekeys.NSFamilies, cachekeys.Family(fam.ID), cache.KindDetail, fam); err != nil {
		t.Fatalf("warm detail: %v", err)
	}
	if err := c.Set(cachekeys.NSFamilies, cachekeys.FamilyList(1), cache.KindList, "warm"); err != nil {
		t.Fatalf("warm list: %v", err)
	}
	if err := c.Set(cachekeys.NSFamilies, cachekeys.FamilyStats, cache.KindStats, "warm"); err != nil {
		t.Fatalf("warm stats: %v", err)
	}

	if _, err := svc.Create(ctx, fam.ID.Hex(), CreateInput{
		ScheduledAt: time.Now().UTC().Add(time.Hour),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, key := range []string{cachekeys.Family(fam.ID), cachekeys.FamilyList(1), cachekeys.FamilyStats} {
		if _, ok := c.Get(cachekeys.NSFamilies, key); ok {
			t.Errorf("family cache entry %q survived appointment creation", key)
		}
	}
}
