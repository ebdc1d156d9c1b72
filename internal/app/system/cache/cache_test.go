package cache

import (
	"errors"
	"testing"
	"time"
)

func testPolicies() map[string]Policy {
	return map[string]Policy{
		"families":         {ListTTL: 2 * time.Minute, DetailTTL: 10 * time.Minute},
		"settlement_notes": {ListTTL: 2 * time.Minute, DetailTTL: 10 * time.Minute},
	}
}

// fixedClock lets tests advance time without sleeping.
type fixedClock struct {
	now time.Time
}

func (f *fixedClock) Now() time.Time { return f.now }

func (f *fixedClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCache() (*Cache, *fixedClock) {
	clk := &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(testPolicies(), WithClock(clk.Now)), clk
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache()

	if err := c.Set("families", "family_507f", KindDetail, "payload"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get("families", "family_507f")
	if !ok {
		t.Fatal("expected entry to be present")
	}
	if got != "payload" {
		t.Errorf("Get: got %v, want %q", got, "payload")
	}
}

func TestCache_GetMissing(t *testing.T) {
	c, _ := newTestCache()

	if _, ok := c.Get("families", "family_507f"); ok {
		t.Error("expected absent for never-written key")
	}
	if _, ok := c.Get("no_such_namespace", "x"); ok {
		t.Error("expected absent for unknown namespace")
	}
}

func TestCache_Set_UsageErrors(t *testing.T) {
	c, _ := newTestCache()

	tests := []struct {
		name    string
		ns, key string
		data    any
		want    error
	}{
		{"empty namespace", "", "k", "v", ErrEmptyNamespace},
		{"empty key", "families", "", "v", ErrEmptyKey},
		{"nil data", "families", "k", nil, ErrNilData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Set(tt.ns, tt.key, KindDetail, tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Set(%q,%q) = %v, want %v", tt.ns, tt.key, err, tt.want)
			}
		})
	}
}

func TestCache_Set_UnknownNamespace(t *testing.T) {
	c, _ := newTestCache()

	err := c.Set("students", "k", KindDetail, "v")
	if !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("Set unknown namespace = %v, want ErrUnknownNamespace", err)
	}
}

func TestCache_Expiry_LazyEviction(t *testing.T) {
	c, clk := newTestCache()

	if err := c.Set("families", "family_507f", KindDetail, "payload"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Just inside the detail TTL: still present.
	clk.Advance(10*time.Minute - time.Second)
	if _, ok := c.Get("families", "family_507f"); !ok {
		t.Fatal("entry expired before its TTL elapsed")
	}

	// Past the TTL: absent, and the read evicts the entry.
	clk.Advance(2 * time.Second)
	if _, ok := c.Get("families", "family_507f"); ok {
		t.Fatal("expected absent after TTL elapsed")
	}
	if n := c.Stats()["families"]; n != 0 {
		t.Errorf("expected eviction on read, namespace still holds %d entries", n)
	}
}

func TestCache_KindSelectsTTL(t *testing.T) {
	c, clk := newTestCache()

	if err := c.Set("families", "families_list_1", KindList, "list"); err != nil {
		t.Fatalf("Set list failed: %v", err)
	}
	if err := c.Set("families", "families_stats", KindStats, "stats"); err != nil {
		t.Fatalf("Set stats failed: %v", err)
	}
	if err := c.Set("families", "family_507f", KindDetail, "detail"); err != nil {
		t.Fatalf("Set detail failed: %v", err)
	}

	// Past the list TTL but inside the detail TTL: list and stats
	// entries are gone, the detail entry survives.
	clk.Advance(3 * time.Minute)

	if _, ok := c.Get("families", "families_list_1"); ok {
		t.Error("list entry should use the list TTL")
	}
	if _, ok := c.Get("families", "families_stats"); ok {
		t.Error("stats entry should use the list TTL")
	}
	if _, ok := c.Get("families", "family_507f"); !ok {
		t.Error("detail entry should use the detail TTL")
	}
}

func TestCache_Set_InvalidKind(t *testing.T) {
	c, _ := newTestCache()

	if err := c.Set("families", "k", Kind(42), "v"); err == nil {
		t.Error("expected error for out-of-range kind")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c, clk := newTestCache()

	if err := c.Set("families", "family_507f", KindDetail, "old"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clk.Advance(9 * time.Minute)
	if err := c.Set("families", "family_507f", KindDetail, "new"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// The overwrite restarted the TTL.
	clk.Advance(9 * time.Minute)
	got, ok := c.Get("families", "family_507f")
	if !ok {
		t.Fatal("overwritten entry expired against its new TTL")
	}
	if got != "new" {
		t.Errorf("Get: got %v, want %q", got, "new")
	}
}

func TestCache_Invalidate_KeyPrefix(t *testing.T) {
	c, _ := newTestCache()

	keys := map[string]Kind{
		"families_list_1": KindList,
		"families_list_2": KindList,
		"families_stats":  KindStats,
		"family_507f":     KindDetail,
	}
	for k, kind := range keys {
		if err := c.Set("families", k, kind, "v"); err != nil {
			t.Fatalf("Set(%q) failed: %v", k, err)
		}
	}

	removed, err := c.Invalidate("families", KeyPrefix("families_list"))
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed: got %d, want 2", removed)
	}
	if _, ok := c.Get("families", "family_507f"); !ok {
		t.Error("prefix invalidation must leave detail keys untouched")
	}
	if _, ok := c.Get("families", "families_stats"); !ok {
		t.Error("prefix invalidation must leave non-matching keys untouched")
	}
}

func TestCache_Invalidate_ExactKey(t *testing.T) {
	c, _ := newTestCache()

	if err := c.Set("families", "family_507f", KindDetail, "a"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("families", "family_507f00", KindDetail, "b"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	removed, err := c.Invalidate("families", ExactKey("family_507f"))
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if _, ok := c.Get("families", "family_507f00"); !ok {
		t.Error("exact-key invalidation removed a longer key")
	}
}

func TestCache_Invalidate_WholeNamespace(t *testing.T) {
	c, _ := newTestCache()

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set("families", k, KindDetail, "v"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	removed, err := c.Invalidate("families", WholeNamespace())
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed: got %d, want 3", removed)
	}

	// Repeating on an empty namespace returns 0.
	removed, err = c.Invalidate("families", WholeNamespace())
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed on empty namespace: got %d, want 0", removed)
	}
}

func TestCache_Invalidate_UnknownNamespace(t *testing.T) {
	c, _ := newTestCache()

	if _, err := c.Invalidate("students", WholeNamespace()); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("Invalidate = %v, want ErrUnknownNamespace", err)
	}
	if _, err := c.Clear("students"); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("Clear = %v, want ErrUnknownNamespace", err)
	}
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache()

	if err := c.Set("families", "a", KindDetail, "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("settlement_notes", "b", KindDetail, "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	removed, err := c.Clear("families")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if _, ok := c.Get("settlement_notes", "b"); !ok {
		t.Error("Clear must not touch other namespaces")
	}
}

func TestCache_SweepExpired(t *testing.T) {
	c, clk := newTestCache()

	if err := c.Set("families", "families_list_1", KindList, "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("families", "family_507f", KindDetail, "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("settlement_notes", "notes_list_1", KindList, "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clk.Advance(3 * time.Minute) // past list TTL, inside detail TTL

	if removed := c.SweepExpired(); removed != 2 {
		t.Errorf("SweepExpired: got %d, want 2", removed)
	}
	stats := c.Stats()
	if stats["families"] != 1 || stats["settlement_notes"] != 0 {
		t.Errorf("unexpected stats after sweep: %v", stats)
	}

	// Nothing left to evict.
	if removed := c.SweepExpired(); removed != 0 {
		t.Errorf("second SweepExpired: got %d, want 0", removed)
	}
}
