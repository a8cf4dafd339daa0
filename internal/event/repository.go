package event

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Repository defines the data operations for events. Implementations must be
// safe for concurrent use.
type Repository interface {
	// List returns published and in-progress events matching the validated
	// filter options, ordered and paged.
	List(ctx context.Context, opts ListOptions) ([]*Event, error)

	// GetByID retrieves an event by its ID regardless of status.
	GetByID(ctx context.Context, id string) (*Event, error)

	// HappeningNow returns events whose interval contains now, soonest-ending
	// first.
	HappeningNow(ctx context.Context, limit int) ([]*Event, error)

	// Featured returns curated events that have not yet ended.
	Featured(ctx context.Context, limit int) ([]*Event, error)

	// Upcoming returns published events starting after now, soonest first.
	Upcoming(ctx context.Context, limit, offset int) ([]*Event, error)

	// ListByOrganizer returns all of an organizer's events, any status,
	// newest start first.
	ListByOrganizer(ctx context.Context, organizerID string) ([]*Event, error)

	// ListByVenue returns published and in-progress events at a venue.
	ListByVenue(ctx context.Context, venueID string) ([]*Event, error)

	// ListBySeries returns all occurrences of a recurring series, soonest
	// first.
	ListBySeries(ctx context.Context, seriesID string) ([]*Event, error)

	// Create stores a new event.
	Create(ctx context.Context, e *Event) error

	// Update persists changes to an existing event. The caller is expected to
	// have verified ownership and status transitions.
	Update(ctx context.Context, e *Event) error

	// Cancel moves an event to cancelled if its current status allows it.
	Cancel(ctx context.Context, id string) (*Event, error)

	// IncrementViewCount bumps the view counter without touching updated_at.
	IncrementViewCount(ctx context.Context, id string) error
}

// InMemoryRepository is an in-memory implementation of Repository. Used for
// testing and development; it preserves insertion order so stable sorts
// tie-break deterministically.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events map[string]*Event
	order  []string
	now    func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository. A nil clock
// defaults to time.Now.
func NewInMemoryRepository(now func() time.Time) *InMemoryRepository {
	if now == nil {
		now = time.Now
	}
	return &InMemoryRepository{
		events: make(map[string]*Event),
		now:    now,
	}
}

// Events returns a snapshot of all stored events in insertion order. This
// satisfies the in-memory query engine's source contract.
func (r *InMemoryRepository) Events(ctx context.Context) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Event, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyEvent(r.events[id]))
	}
	return out, nil
}

func (r *InMemoryRepository) snapshot() []*Event {
	out := make([]*Event, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyEvent(r.events[id]))
	}
	return out
}

// List mirrors the SQL backend's semantics over the in-memory store. Text
// search degrades to a case-insensitive substring match on title and
// description since no full-text index exists here.
func (r *InMemoryRepository) List(ctx context.Context, opts ListOptions) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(opts.Search)
	matched := []*Event{}
	for _, e := range r.snapshot() {
		if e.Status != StatusPublished && e.Status != StatusInProgress {
			continue
		}
		if len(opts.Categories) > 0 && !containsString(opts.Categories, string(e.Category)) {
			continue
		}
		if len(opts.Maturity) > 0 && !matchesStoreMaturity(opts.Maturity, e.Maturity) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Title), search) &&
			!strings.Contains(strings.ToLower(e.Description), search) {
			continue
		}
		if opts.IsFree && e.EntryFee != 0 {
			continue
		}
		if opts.StartsAfter != nil && e.StartTime.Before(*opts.StartsAfter) {
			continue
		}
		if opts.StartsBefore != nil && e.StartTime.After(*opts.StartsBefore) {
			continue
		}
		matched = append(matched, e)
	}

	sortByColumn(matched, opts.SortColumn, opts.Descending)

	limit := clamp(opts.Limit, minListLimit, maxListLimit)
	offset := opts.Offset
	if offset >= len(matched) {
		return []*Event{}, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// GetByID retrieves an event by its ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return copyEvent(e), nil
}

// HappeningNow returns live events, soonest-ending first.
func (r *InMemoryRepository) HappeningNow(ctx context.Context, limit int) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	out := []*Event{}
	for _, e := range r.snapshot() {
		if e.Status != StatusPublished && e.Status != StatusInProgress {
			continue
		}
		if !e.StartTime.After(now) && e.EndTime.After(now) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return truncate(out, limit), nil
}

// Featured returns curated events that have not yet ended.
func (r *InMemoryRepository) Featured(ctx context.Context, limit int) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	out := []*Event{}
	for _, e := range r.snapshot() {
		if !e.Featured || e.Status != StatusPublished && e.Status != StatusInProgress {
			continue
		}
		if e.EndTime.After(now) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return truncate(out, limit), nil
}

// Upcoming returns published events starting after now, soonest first.
func (r *InMemoryRepository) Upcoming(ctx context.Context, limit, offset int) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	out := []*Event{}
	for _, e := range r.snapshot() {
		if e.Status == StatusPublished && e.StartTime.After(now) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if offset >= len(out) {
		return []*Event{}, nil
	}
	out = out[offset:]
	return truncate(out, limit), nil
}

// ListByOrganizer returns all of an organizer's events, newest start first.
func (r *InMemoryRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Event{}
	for _, e := range r.snapshot() {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

// ListByVenue returns published and in-progress events at a venue.
func (r *InMemoryRepository) ListByVenue(ctx context.Context, venueID string) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Event{}
	for _, e := range r.snapshot() {
		if e.VenueID == venueID && (e.Status == StatusPublished || e.Status == StatusInProgress) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// ListBySeries returns all occurrences of a recurring series, soonest first.
func (r *InMemoryRepository) ListBySeries(ctx context.Context, seriesID string) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Event{}
	for _, e := range r.snapshot() {
		if e.SeriesID == seriesID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// Create stores a new event.
func (r *InMemoryRepository) Create(ctx context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[e.ID]; !exists {
		r.order = append(r.order, e.ID)
	}
	r.events[e.ID] = copyEvent(e)
	return nil
}

// Update persists changes to an existing event.
func (r *InMemoryRepository) Update(ctx context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[e.ID]; !ok {
		return ErrEventNotFound
	}
	r.events[e.ID] = copyEvent(e)
	return nil
}

// Cancel moves an event to cancelled if its current status allows it.
func (r *InMemoryRepository) Cancel(ctx context.Context, id string) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	if !e.Status.CanTransitionTo(StatusCancelled) {
		return nil, ErrInvalidTransition
	}
	e.Status = StatusCancelled
	e.UpdatedAt = r.now()
	return copyEvent(e), nil
}

// IncrementViewCount bumps the view counter.
func (r *InMemoryRepository) IncrementViewCount(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return ErrEventNotFound
	}
	e.ViewCount++
	return nil
}

func copyEvent(e *Event) *Event {
	c := *e
	if e.Location.Coordinates != nil {
		coords := *e.Location.Coordinates
		c.Location.Coordinates = &coords
	}
	if e.Capacity != nil {
		n := *e.Capacity
		c.Capacity = &n
	}
	c.Tags = append([]string(nil), e.Tags...)
	c.Gallery = append([]string(nil), e.Gallery...)
	c.Tickets = append([]TicketTier(nil), e.Tickets...)
	return &c
}

func containsString(set []string, want string) bool {
	for _, s := range set {
		if s == want {
			return true
		}
	}
	return false
}

// storeMaturity translates the client enum back to the broadest matching store
// value, used when writing rows.
func storeMaturity(m Maturity) string {
	switch m {
	case MaturityMature:
		return StoreMaturityR
	case MaturityAdult:
		return StoreMaturityX
	default:
		return StoreMaturityG
	}
}

// matchesStoreMaturity reports whether any requested store-layer rating maps
// to the event's client maturity. The client enum collapses G and PG, so a
// filter on either must match an event held as MaturityG, mirroring the SQL
// backend's maturity_rating = ANY() over raw column values.
func matchesStoreMaturity(requested []string, m Maturity) bool {
	for _, rating := range requested {
		if MaturityFromStore(rating) == m {
			return true
		}
	}
	return false
}

func sortByColumn(items []*Event, column string, desc bool) {
	less := func(i, j int) bool { return items[i].StartTime.Before(items[j].StartTime) }
	switch ValidateSortColumn(column) {
	case "traffic_score":
		less = func(i, j int) bool { return items[i].TrafficScore < items[j].TrafficScore }
	case "rsvp_count":
		less = func(i, j int) bool { return items[i].AttendeeCount < items[j].AttendeeCount }
	case "created_at":
		less = func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) }
	}
	if desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(items, less)
}

func truncate(items []*Event, limit int) []*Event {
	if limit > 0 && limit < len(items) {
		return items[:limit]
	}
	return items
}
