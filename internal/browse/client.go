// Package browse is the embeddable client-side browsing component. It pulls
// event listings from the API, keeps the last successful payload as a working
// snapshot, and runs all filtering, scoring, and ranking locally through the
// in-memory query engine. When the API is unreachable the component degrades
// to the last-known-good snapshot, or to the built-in seed dataset if no
// fetch has ever succeeded, so the event board always renders something.
package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/poqpoq/events-api/internal/event"
	"github.com/poqpoq/events-api/internal/search"
)

// fetchLimit is how many events one refresh pulls. The local engine re-ranks
// the whole snapshot, so this bounds memory, not result quality per filter.
const fetchLimit = 50

// Client is the client-side event source and query engine.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.RWMutex
	snapshot  []*event.Event
	fetchedAt time.Time
	stale     bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock injects a clock for deterministic date windows in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a browse client for the API at baseURL. The snapshot
// starts as the seed dataset; callers refresh explicitly, there is no
// background polling.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
		now:        time.Now,
		stale:      true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snapshot = SeedEvents(c.now())
	return c
}

// Refresh fetches the current listings from the API and replaces the working
// snapshot. On any failure the previous snapshot is kept and the error
// returned, so callers can surface staleness without losing the board.
func (c *Client) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/events?limit=%d", c.baseURL, fetchLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build refresh request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.markStale()
		c.logger.Warn("event refresh failed, serving cached snapshot", "error", err)
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.markStale()
		c.logger.Warn("event refresh failed, serving cached snapshot",
			"status", resp.StatusCode)
		return fmt.Errorf("unexpected status %d fetching events", resp.StatusCode)
	}

	var events []*event.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		c.markStale()
		c.logger.Warn("event refresh returned undecodable payload", "error", err)
		return fmt.Errorf("failed to decode events: %w", err)
	}

	c.mu.Lock()
	c.snapshot = events
	c.fetchedAt = c.now()
	c.stale = false
	c.mu.Unlock()

	c.logger.Debug("event snapshot refreshed", "count", len(events))
	return nil
}

func (c *Client) markStale() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

// Stale reports whether the snapshot predates the last failed refresh, or no
// refresh has ever succeeded.
func (c *Client) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

// FetchedAt returns when the snapshot was last successfully refreshed. The
// zero time means the client is still on seed data.
func (c *Client) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Events returns the working snapshot. Implements the query engine's source
// contract.
func (c *Client) Events(ctx context.Context) ([]*event.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*event.Event, len(c.snapshot))
	copy(out, c.snapshot)
	return out, nil
}

// Search evaluates a filter set against the working snapshot. It never fails:
// the snapshot is always present, seed data included.
func (c *Client) Search(ctx context.Context, f search.FilterSet) ([]*event.Event, int) {
	engine := search.NewEngine(c, c.now)
	results, total, err := engine.Search(ctx, f)
	if err != nil {
		// The snapshot source cannot error; guard anyway.
		c.logger.Error("snapshot search failed", "error", err)
		return nil, 0
	}
	return results, total
}
