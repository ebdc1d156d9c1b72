package cachekeys

import (
	"testing"

	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDefaultPolicies_CoverAllNamespaces(t *testing.T) {
	policies := DefaultPolicies()
	for _, ns := range []string{NSFamilies, NSSettlementNotes, NSAppointments, NSSubjects, NSUsers} {
		p, ok := policies[ns]
		if !ok {
			t.Errorf("namespace %q has no policy", ns)
			continue
		}
		if p.ListTTL <= 0 || p.DetailTTL <= 0 {
			t.Errorf("namespace %q has non-positive TTLs: %+v", ns, p)
		}
	}
}

func TestListPrefixes_MatchListKeysOnly(t *testing.T) {
	c := cache.New(DefaultPolicies())
	id := primitive.NewObjectID()

	if err := c.Set(NSFamilies, FamilyList(1), cache.KindList, "p1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(NSFamilies, FamilyList(2), cache.KindList, "p2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(NSFamilies, FamilyStats, cache.KindStats, "stats"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(NSFamilies, Family(id), cache.KindDetail, "detail"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	removed, err := c.Invalidate(NSFamilies, FamilyListPrefix())
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed: got %d, want 2", removed)
	}
	if _, ok := c.Get(NSFamilies, Family(id)); !ok {
		t.Error("list-prefix invalidation removed the detail entry")
	}
	if _, ok := c.Get(NSFamilies, FamilyStats); !ok {
		t.Error("list-prefix invalidation removed the stats entry")
	}
}
