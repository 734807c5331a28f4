// Package viewgate implements the free-view gate: two monotonic per-item
// view counters backed by durable storage, and an authentication wall that
// opens once either counter passes its configured limit.
package viewgate

import (
	"fmt"
	"strconv"
	"sync"
)

// Storage keys. Seen markers are keyed per item so re-viewing an item never
// double-counts.
const (
	scrollCountKey   = "viewed_ads_count"
	modalCountKey    = "viewed_modal_count"
	scrollSeenPrefix = "viewed_image_"
	modalSeenPrefix  = "viewed_modal_image_"
)

// Trigger records which counter tripped the wall first.
type Trigger string

const (
	TriggerNone   Trigger = ""
	TriggerScroll Trigger = "scroll"
	TriggerModal  Trigger = "modal"
)

// Config holds gate limits.
type Config struct {
	Enabled     bool
	ScrollLimit int
	ModalLimit  int
}

// DefaultConfig returns the production limits with gating disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		ScrollLimit: 50,
		ModalLimit:  5,
	}
}

// Gate tracks distinct items viewed via scroll visibility and via the modal,
// and decides when the authentication wall is shown. Counters only increase;
// authentication dismisses the wall but never resets counts.
type Gate struct {
	mu            sync.Mutex
	store         Store
	enabled       bool
	scrollLimit   int
	modalLimit    int
	scrollCount   int
	modalCount    int
	authenticated bool
	wallVisible   bool
	trigger       Trigger
}

// NewGate creates a gate, loading persisted counters from the store.
// Parameters:
//   - store: durable key-value backend.
//   - cfg: enable flag and limits.
// Returns:
//   - *Gate: initialized gate.
//   - error: non-nil if persisted state cannot be read.
func NewGate(store Store, cfg Config) (*Gate, error) {
	g := &Gate{
		store:       store,
		enabled:     cfg.Enabled,
		scrollLimit: cfg.ScrollLimit,
		modalLimit:  cfg.ModalLimit,
	}

	var err error
	if g.scrollCount, err = loadCount(store, scrollCountKey); err != nil {
		return nil, err
	}
	if g.modalCount, err = loadCount(store, modalCountKey); err != nil {
		return nil, err
	}

	return g, nil
}

func loadCount(store Store, key string) (int, error) {
	value, ok, err := store.Get(key)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return 0, nil
	}
	count, err := strconv.Atoi(value)
	if err != nil || count < 0 {
		return 0, nil
	}
	return count, nil
}

// RecordScrollView counts an item becoming visible in the gallery. Each item
// ID is counted at most once.
// Parameters:
//   - itemID: catalog ID of the viewed item.
// Returns:
//   - error: non-nil if persistence fails.
func (g *Gate) RecordScrollView(itemID int64) error {
	return g.record(itemID, scrollSeenPrefix, scrollCountKey, &g.scrollCount, g.scrollLimit, TriggerScroll)
}

// RecordModalView counts an item being opened in the detail modal. Each item
// ID is counted at most once.
// Parameters:
//   - itemID: catalog ID of the opened item.
// Returns:
//   - error: non-nil if persistence fails.
func (g *Gate) RecordModalView(itemID int64) error {
	return g.record(itemID, modalSeenPrefix, modalCountKey, &g.modalCount, g.modalLimit, TriggerModal)
}

func (g *Gate) record(itemID int64, seenPrefix, countKey string, count *int, limit int, trigger Trigger) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	seenKey := seenPrefix + strconv.FormatInt(itemID, 10)
	_, seen, err := g.store.Get(seenKey)
	if err != nil {
		return fmt.Errorf("failed to check seen marker: %w", err)
	}
	if seen {
		return nil
	}

	if err := g.store.Set(seenKey, "true"); err != nil {
		return fmt.Errorf("failed to persist seen marker: %w", err)
	}

	*count++
	if err := g.store.Set(countKey, strconv.Itoa(*count)); err != nil {
		return fmt.Errorf("failed to persist view count: %w", err)
	}

	// First limit crossing sets the trigger reason; the wall is shared
	if g.enabled && !g.authenticated && !g.wallVisible && *count > limit {
		g.wallVisible = true
		g.trigger = trigger
	}

	return nil
}

// ScrollLimitReached reports whether the scroll gate blocks further viewing.
// Always false when gating is disabled or the user is authenticated.
func (g *Gate) ScrollLimitReached() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled && g.scrollCount > g.scrollLimit && !g.authenticated
}

// ModalLimitReached reports whether the modal gate blocks further viewing.
func (g *Gate) ModalLimitReached() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled && g.modalCount > g.modalLimit && !g.authenticated
}

// WallVisible reports whether the authentication wall is showing.
func (g *Gate) WallVisible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wallVisible
}

// TriggerReason returns which counter tripped the wall.
func (g *Gate) TriggerReason() Trigger {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trigger
}

// ScrollCount returns the distinct scroll-view count.
func (g *Gate) ScrollCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scrollCount
}

// ModalCount returns the distinct modal-view count.
func (g *Gate) ModalCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modalCount
}

// SetAuthenticated updates the auth state. Becoming authenticated dismisses
// the wall; counters are left untouched.
// Parameters:
//   - authenticated: current auth state from the auth provider subscription.
func (g *Gate) SetAuthenticated(authenticated bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = authenticated
	if authenticated && g.wallVisible {
		g.wallVisible = false
		g.trigger = TriggerNone
	}
}

// DismissWall hides the wall without authenticating.
func (g *Gate) DismissWall() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wallVisible = false
	g.trigger = TriggerNone
}
