package viewgate

import (
	"errors"
	"strconv"
	"testing"
)

func newTestGate(t *testing.T, cfg Config) (*Gate, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	gate, err := NewGate(store, cfg)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	return gate, store
}

func TestScrollViewsAreDeduplicated(t *testing.T) {
	gate, _ := newTestGate(t, Config{Enabled: true, ScrollLimit: 50, ModalLimit: 5})

	for i := 0; i < 3; i++ {
		if err := gate.RecordScrollView(1); err != nil {
			t.Fatalf("RecordScrollView failed: %v", err)
		}
	}
	if err := gate.RecordScrollView(2); err != nil {
		t.Fatalf("RecordScrollView failed: %v", err)
	}

	if got := gate.ScrollCount(); got != 2 {
		t.Errorf("ScrollCount: got %d, want 2", got)
	}
}

func TestWallTripsWhenLimitExceeded(t *testing.T) {
	gate, _ := newTestGate(t, Config{Enabled: true, ScrollLimit: 3, ModalLimit: 5})

	for i := int64(1); i <= 3; i++ {
		if err := gate.RecordScrollView(i); err != nil {
			t.Fatalf("RecordScrollView failed: %v", err)
		}
	}
	if gate.WallVisible() {
		t.Fatal("Wall tripped at the limit, should trip only past it")
	}
	if gate.ScrollLimitReached() {
		t.Fatal("ScrollLimitReached at the limit, should be false")
	}

	if err := gate.RecordScrollView(4); err != nil {
		t.Fatalf("RecordScrollView failed: %v", err)
	}
	if !gate.WallVisible() {
		t.Fatal("Wall should be visible past the limit")
	}
	if !gate.ScrollLimitReached() {
		t.Error("ScrollLimitReached should be true past the limit")
	}
	if got := gate.TriggerReason(); got != TriggerScroll {
		t.Errorf("TriggerReason: got %q, want %q", got, TriggerScroll)
	}
}

func TestModalLimitIndependentOfScrollLimit(t *testing.T) {
	gate, _ := newTestGate(t, Config{Enabled: true, ScrollLimit: 50, ModalLimit: 2})

	for i := int64(1); i <= 3; i++ {
		if err := gate.RecordModalView(i); err != nil {
			t.Fatalf("RecordModalView failed: %v", err)
		}
	}

	if !gate.ModalLimitReached() {
		t.Error("ModalLimitReached should be true past the limit")
	}
	if gate.ScrollLimitReached() {
		t.Error("ScrollLimitReached should be unaffected by modal views")
	}
	if got := gate.TriggerReason(); got != TriggerModal {
		t.Errorf("TriggerReason: got %q, want %q", got, TriggerModal)
	}
}

func TestDisabledGateNeverTrips(t *testing.T) {
	gate, _ := newTestGate(t, Config{Enabled: false, ScrollLimit: 1, ModalLimit: 1})

	for i := int64(1); i <= 10; i++ {
		if err := gate.RecordScrollView(i); err != nil {
			t.Fatalf("RecordScrollView failed: %v", err)
		}
		if err := gate.RecordModalView(i); err != nil {
			t.Fatalf("RecordModalView failed: %v", err)
		}
	}

	if gate.WallVisible() || gate.ScrollLimitReached() || gate.ModalLimitReached() {
		t.Error("Disabled gate should never block")
	}
	// Counters still advance while disabled
	if got := gate.ScrollCount(); got != 10 {
		t.Errorf("ScrollCount: got %d, want 10", got)
	}
}

func TestAuthenticationDismissesWallWithoutResettingCounters(t *testing.T) {
	gate, _ := newTestGate(t, Config{Enabled: true, ScrollLimit: 2, ModalLimit: 5})

	for i := int64(1); i <= 3; i++ {
		if err := gate.RecordScrollView(i); err != nil {
			t.Fatalf("RecordScrollView failed: %v", err)
		}
	}
	if !gate.WallVisible() {
		t.Fatal("Wall should be visible")
	}

	gate.SetAuthenticated(true)

	if gate.WallVisible() {
		t.Error("Authentication should dismiss the wall")
	}
	if gate.ScrollLimitReached() {
		t.Error("Authenticated users are never blocked")
	}
	if got := gate.ScrollCount(); got != 3 {
		t.Errorf("ScrollCount after auth: got %d, want 3", got)
	}

	// Signing out re-arms the gate with the counters intact
	gate.SetAuthenticated(false)
	if !gate.ScrollLimitReached() {
		t.Error("Signing out should re-arm the limit check")
	}
}

func TestCountersPersistAcrossRestarts(t *testing.T) {
	store := NewMemoryStore()

	gate, err := NewGate(store, Config{Enabled: true, ScrollLimit: 50, ModalLimit: 5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	for i := int64(1); i <= 4; i++ {
		if err := gate.RecordScrollView(i); err != nil {
			t.Fatalf("RecordScrollView failed: %v", err)
		}
	}

	reloaded, err := NewGate(store, Config{Enabled: true, ScrollLimit: 50, ModalLimit: 5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	if got := reloaded.ScrollCount(); got != 4 {
		t.Errorf("ScrollCount after reload: got %d, want 4", got)
	}

	// Items seen before the restart still don't double-count
	if err := reloaded.RecordScrollView(1); err != nil {
		t.Fatalf("RecordScrollView failed: %v", err)
	}
	if got := reloaded.ScrollCount(); got != 4 {
		t.Errorf("ScrollCount after duplicate: got %d, want 4", got)
	}
}

func TestCorruptPersistedCountFallsBackToZero(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Set(scrollCountKey, "garbage"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(modalCountKey, "-3"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	gate, err := NewGate(store, DefaultConfig())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	if gate.ScrollCount() != 0 || gate.ModalCount() != 0 {
		t.Errorf("Corrupt counts should reset to zero, got scroll=%d modal=%d",
			gate.ScrollCount(), gate.ModalCount())
	}
}

type failingStore struct {
	*MemoryStore
	failSet bool
}

func (s *failingStore) Set(key, value string) error {
	if s.failSet {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(key, value)
}

func TestRecordPropagatesStoreErrors(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), failSet: true}
	gate, err := NewGate(store, DefaultConfig())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	if err := gate.RecordScrollView(1); err == nil {
		t.Error("RecordScrollView should surface persistence failures")
	}
}

func TestDismissWallKeepsCounters(t *testing.T) {
	gate, store := newTestGate(t, Config{Enabled: true, ScrollLimit: 1, ModalLimit: 1})

	for i := int64(1); i <= 2; i++ {
		if err := gate.RecordScrollView(i); err != nil {
			t.Fatalf("RecordScrollView failed: %v", err)
		}
	}
	if !gate.WallVisible() {
		t.Fatal("Wall should be visible")
	}

	gate.DismissWall()

	if gate.WallVisible() {
		t.Error("DismissWall should hide the wall")
	}
	if value, ok, _ := store.Get(scrollCountKey); !ok || value != strconv.Itoa(2) {
		t.Errorf("Persisted count: got %q, want %q", value, "2")
	}
	// Limit checks still hold; only the wall visibility changed
	if !gate.ScrollLimitReached() {
		t.Error("ScrollLimitReached should survive a dismissal")
	}
}
