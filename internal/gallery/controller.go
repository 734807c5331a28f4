// Package gallery owns the client-side gallery state: pagination cursor,
// accumulated results, the one-page-ahead prefetch buffer, the infinite
// scroll trigger, and the view-gate interaction. All mutation goes through
// the Controller's transition methods.
package gallery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/beamhq/adgallery/internal/domain"
	"github.com/beamhq/adgallery/internal/logger"
	"github.com/beamhq/adgallery/internal/viewgate"
)

// State is the gallery lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateLoadingInitial State = "loading-initial"
	StateLoadingMore    State = "loading-more"
	StateReady          State = "ready"
	StateExhausted      State = "exhausted"
	StateGated          State = "gated"
)

// Mode selects which fetch path feeds the gallery.
type Mode string

const (
	ModeCatalog  Mode = "catalog"
	ModeSemantic Mode = "semantic"
)

// Page is one fetched page of results.
type Page struct {
	Images     []domain.ImageRecord
	HasMore    bool
	TotalCount int
}

// Fetcher provides the two fetch paths: semantic search and catalog listing.
type Fetcher interface {
	Search(ctx context.Context, query string, page, perPage int) (*Page, error)
	List(ctx context.Context, page, perPage int, query string) (*Page, error)
}

// Options configures a Controller.
type Options struct {
	PerPage int
	// Prefetch enables background refill of the one-page-ahead buffer.
	// Tests disable it and call Prefetch directly for determinism.
	Prefetch bool
}

// Controller is the gallery state machine. Methods are safe for concurrent
// use; at most one load is in flight at a time, and every fetch carries a
// sequence number so completions for a superseded query are discarded.
type Controller struct {
	mu      sync.Mutex
	fetcher Fetcher
	gate    *viewgate.Gate
	perPage int
	async   bool

	state      State
	mode       Mode
	query      string
	page       int
	results    []domain.ImageRecord
	totalCount int
	hasMore    bool
	loading    bool

	// seq increments on every query change; stale completions are dropped
	seq uint64

	prefetched   *Page
	prefetchPage int
	prefetchSeq  uint64
}

// NewController creates a gallery controller.
// Parameters:
//   - fetcher: search/list backend.
//   - gate: optional view gate; nil disables gating entirely.
//   - opts: page size and prefetch behavior.
// Returns:
//   - *Controller: controller in the idle state.
func NewController(fetcher Fetcher, gate *viewgate.Gate, opts Options) *Controller {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	return &Controller{
		fetcher: fetcher,
		gate:    gate,
		perPage: perPage,
		async:   opts.Prefetch,
		state:   StateIdle,
		mode:    ModeCatalog,
		page:    1,
	}
}

// Mount performs the initial catalog load. A no-op unless the controller is
// idle.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil if the initial load fails.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLoadingInitial
	c.loading = true
	seq := c.seq
	c.mu.Unlock()

	page, err := c.fetcher.List(ctx, 1, c.perPage, "")
	if err != nil {
		c.failInitial(seq)
		return fmt.Errorf("initial load failed: %w", err)
	}
	c.applyInitial(ctx, seq, page)
	return nil
}

// SetQuery resets the gallery and reloads for the new query text. Non-empty
// text takes the semantic path, falling back once to the catalog path with
// the same text; empty text reloads the unfiltered catalog.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: new query text.
// Returns:
//   - error: non-nil when every applicable path failed.
func (c *Controller) SetQuery(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.query = query
	c.page = 1
	c.results = nil
	c.totalCount = 0
	c.hasMore = false
	c.prefetched = nil
	c.loading = true
	c.state = StateLoadingInitial
	if query == "" {
		c.mode = ModeCatalog
	} else {
		c.mode = ModeSemantic
	}
	mode := c.mode
	c.mu.Unlock()

	page, err := c.fetchPage(ctx, mode, query, 1)
	if err != nil {
		c.failInitial(seq)
		return err
	}
	c.applyInitial(ctx, seq, page)
	return nil
}

// LoadMore appends the next page. It is a no-op unless the state is ready,
// the gate has not tripped, and no other load is in flight. The prefetch
// buffer is preferred when it holds the next page.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil if the fetch fails.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReady || c.loading {
		c.mu.Unlock()
		return nil
	}
	if c.gate != nil && c.gate.ScrollLimitReached() {
		c.state = StateGated
		c.mu.Unlock()
		return nil
	}

	seq := c.seq
	mode := c.mode
	query := c.query
	nextPage := c.page + 1

	// Swap in the prefetched page when it matches
	if c.prefetched != nil && c.prefetchPage == nextPage && c.prefetchSeq == seq {
		page := c.prefetched
		c.prefetched = nil
		c.appendLocked(nextPage, page)
		refill := c.async && c.hasMore
		c.mu.Unlock()
		if refill {
			go func() {
				_ = c.Prefetch(context.WithoutCancel(ctx))
			}()
		}
		return nil
	}

	c.loading = true
	c.state = StateLoadingMore
	c.mu.Unlock()

	page, err := c.fetchPage(ctx, mode, query, nextPage)

	c.mu.Lock()
	if c.seq != seq {
		// A newer query superseded this load; drop it
		c.mu.Unlock()
		return nil
	}
	c.loading = false
	if err != nil {
		c.state = StateReady
		c.mu.Unlock()
		return err
	}
	c.appendLocked(nextPage, page)
	refill := c.async && c.hasMore
	c.mu.Unlock()

	if refill {
		go func() {
			_ = c.Prefetch(context.WithoutCancel(ctx))
		}()
	}
	return nil
}

// Prefetch fills the one-page-ahead buffer for the current cursor. Stale
// completions (query changed mid-flight) are discarded.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil if the speculative fetch fails; the gallery state is
//     unaffected either way.
func (c *Controller) Prefetch(ctx context.Context) error {
	c.mu.Lock()
	if !c.hasMore || c.loading {
		c.mu.Unlock()
		return nil
	}
	seq := c.seq
	mode := c.mode
	query := c.query
	nextPage := c.page + 1
	if c.prefetched != nil && c.prefetchPage == nextPage && c.prefetchSeq == seq {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	page, err := c.fetchPage(ctx, mode, query, nextPage)
	if err != nil {
		logger.CtxWarn(ctx, "Prefetch failed: page=%d, error=%v", nextPage, err)
		return err
	}

	c.mu.Lock()
	if c.seq == seq && c.page+1 == nextPage {
		c.prefetched = page
		c.prefetchPage = nextPage
		c.prefetchSeq = seq
	}
	c.mu.Unlock()
	return nil
}

// ItemViewed records a gallery item becoming visible. Trips the gate when
// the scroll limit is exceeded.
// Parameters:
//   - itemID: catalog ID of the viewed item.
// Returns:
//   - error: non-nil if gate persistence fails.
func (c *Controller) ItemViewed(itemID int64) error {
	if c.gate == nil {
		return nil
	}
	if err := c.gate.RecordScrollView(itemID); err != nil {
		return err
	}
	c.checkGate()
	return nil
}

// ItemOpened records a gallery item being opened in the modal. Trips the
// gate when the modal limit is exceeded.
// Parameters:
//   - itemID: catalog ID of the opened item.
// Returns:
//   - error: non-nil if gate persistence fails.
func (c *Controller) ItemOpened(itemID int64) error {
	if c.gate == nil {
		return nil
	}
	if err := c.gate.RecordModalView(itemID); err != nil {
		return err
	}
	c.checkGate()
	return nil
}

func (c *Controller) checkGate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate.WallVisible() && c.state == StateReady {
		c.state = StateGated
	}
}

// OnAuthChange feeds auth-provider state into the gate. Successful
// authentication releases a gated gallery.
// Parameters:
//   - authenticated: current auth state.
func (c *Controller) OnAuthChange(authenticated bool) {
	if c.gate != nil {
		c.gate.SetAuthenticated(authenticated)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if authenticated && c.state == StateGated {
		c.state = StateReady
	}
}

// DismissGate hides the wall without authenticating and releases the
// gallery.
func (c *Controller) DismissGate() {
	if c.gate != nil {
		c.gate.DismissWall()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateGated {
		c.state = StateReady
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Results returns a copy of the accumulated records in display order.
func (c *Controller) Results() []domain.ImageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ImageRecord, len(c.results))
	copy(out, c.results)
	return out
}

// PageCursor returns the current page number.
func (c *Controller) PageCursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// HasMore reports whether more pages are believed to exist.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// TotalCount returns the current total-count estimate.
func (c *Controller) TotalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCount
}

// fetchPage routes to the active fetch path. The semantic path falls back
// once to the catalog path with the same query text.
func (c *Controller) fetchPage(ctx context.Context, mode Mode, query string, page int) (*Page, error) {
	if mode == ModeSemantic {
		result, err := c.fetcher.Search(ctx, query, page, c.perPage)
		if err == nil {
			return result, nil
		}
		logger.CtxWarn(ctx, "Semantic search failed, falling back to catalog: query=%q, error=%v", query, err)
		fallback, fbErr := c.fetcher.List(ctx, page, c.perPage, query)
		if fbErr != nil {
			return nil, fmt.Errorf("catalog fallback failed: %v (search error: %w)", fbErr, err)
		}
		return fallback, nil
	}
	return c.fetcher.List(ctx, page, c.perPage, query)
}

// applyInitial installs the first page for seq, unless superseded.
func (c *Controller) applyInitial(ctx context.Context, seq uint64, page *Page) {
	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.page = 1
	c.results = append([]domain.ImageRecord(nil), page.Images...)
	c.totalCount = page.TotalCount
	c.hasMore = page.HasMore
	if page.HasMore {
		c.state = StateReady
	} else {
		c.state = StateExhausted
	}
	refill := c.async && c.hasMore
	c.mu.Unlock()

	if refill {
		go func() {
			_ = c.Prefetch(context.WithoutCancel(ctx))
		}()
	}
}

// failInitial returns the controller to idle after a failed load, unless a
// newer query took over.
func (c *Controller) failInitial(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq != seq {
		return
	}
	c.loading = false
	c.state = StateIdle
}

// appendLocked appends a fetched page and advances the cursor. Caller holds mu.
func (c *Controller) appendLocked(pageNum int, page *Page) {
	c.page = pageNum
	c.results = append(c.results, page.Images...)
	if page.TotalCount > 0 {
		c.totalCount = page.TotalCount
	}
	c.hasMore = page.HasMore
	c.loading = false
	if page.HasMore {
		c.state = StateReady
	} else {
		c.state = StateExhausted
	}
}
