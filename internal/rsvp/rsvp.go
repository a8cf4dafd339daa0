// Package rsvp provides attendance tracking for events. An RSVP is one
// (event, user) pair carrying a status; re-submitting replaces the previous
// status rather than stacking.
package rsvp

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// RSVP statuses. Going and interested feed the event's public counters;
// maybe and not_going are tracked but not counted.
const (
	StatusGoing      = "going"
	StatusInterested = "interested"
	StatusMaybe      = "maybe"
	StatusNotGoing   = "not_going"
)

var (
	// ErrRSVPNotFound is returned when no RSVP exists for the pair.
	ErrRSVPNotFound = errors.New("rsvp not found")
)

var validStatuses = map[string]bool{
	StatusGoing:      true,
	StatusInterested: true,
	StatusMaybe:      true,
	StatusNotGoing:   true,
}

// IsValidStatus reports whether s is one of the four RSVP statuses.
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// RSVP is a user's attendance declaration for one event.
type RSVP struct {
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Counts summarizes an event's attendance.
type Counts struct {
	Going      int `json:"going"`
	Interested int `json:"interested"`
	Maybe      int `json:"maybe"`
}

// Repository defines RSVP data operations. Implementations keep the event's
// rsvp_count and interested_count columns consistent with the stored rows.
type Repository interface {
	// Upsert creates or replaces the user's RSVP for the event.
	Upsert(ctx context.Context, r *RSVP) error

	// Delete removes the user's RSVP for the event.
	Delete(ctx context.Context, eventID, userID string) error

	// GetByEventAndUser retrieves one RSVP, or ErrRSVPNotFound.
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*RSVP, error)

	// CountsForEvent returns the per-status attendance counts.
	CountsForEvent(ctx context.Context, eventID string) (Counts, error)

	// Attendees lists user IDs with a going or interested RSVP for the
	// event, oldest first, capped at limit.
	Attendees(ctx context.Context, eventID string, limit int) ([]string, error)
}

// InMemoryRepository is an in-memory implementation of Repository. Used for
// testing and development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	rsvps map[string]*RSVP
	now   func() time.Time
}

// NewInMemoryRepository creates an empty in-memory RSVP repository.
func NewInMemoryRepository(now func() time.Time) *InMemoryRepository {
	if now == nil {
		now = time.Now
	}
	return &InMemoryRepository{rsvps: make(map[string]*RSVP), now: now}
}

func key(eventID, userID string) string {
	return eventID + "\x00" + userID
}

// Upsert creates or replaces the user's RSVP for the event.
func (r *InMemoryRepository) Upsert(ctx context.Context, rec *RSVP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(rec.EventID, rec.UserID)
	now := r.now()
	if existing, ok := r.rsvps[k]; ok {
		existing.Status = rec.Status
		existing.UpdatedAt = now
		return nil
	}
	stored := *rec
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.rsvps[k] = &stored
	return nil
}

// Delete removes the user's RSVP for the event.
func (r *InMemoryRepository) Delete(ctx context.Context, eventID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(eventID, userID)
	if _, ok := r.rsvps[k]; !ok {
		return ErrRSVPNotFound
	}
	delete(r.rsvps, k)
	return nil
}

// GetByEventAndUser retrieves one RSVP, or ErrRSVPNotFound.
func (r *InMemoryRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*RSVP, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rsvps[key(eventID, userID)]
	if !ok {
		return nil, ErrRSVPNotFound
	}
	c := *rec
	return &c, nil
}

// CountsForEvent returns the per-status attendance counts.
func (r *InMemoryRepository) CountsForEvent(ctx context.Context, eventID string) (Counts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var c Counts
	for _, rec := range r.rsvps {
		if rec.EventID != eventID {
			continue
		}
		switch rec.Status {
		case StatusGoing:
			c.Going++
		case StatusInterested:
			c.Interested++
		case StatusMaybe:
			c.Maybe++
		}
	}
	return c, nil
}

// Attendees lists user IDs with a going or interested RSVP for the event,
// oldest first, capped at limit.
func (r *InMemoryRepository) Attendees(ctx context.Context, eventID string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []*RSVP{}
	for _, rec := range r.rsvps {
		if rec.EventID == eventID && (rec.Status == StatusGoing || rec.Status == StatusInterested) {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	out := []string{}
	for _, rec := range matched {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, rec.UserID)
	}
	return out, nil
}
