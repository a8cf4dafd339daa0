// Package rating provides post-event feedback for events. Each user rates an
// event at most once; re-rating replaces the earlier submission.
package rating

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Rating score bounds. Sub-scores share the same scale.
const (
	MinScore = 1
	MaxScore = 5
)

var (
	// ErrInvalidScore is returned for scores outside the 1..5 scale.
	ErrInvalidScore = errors.New("score must be between 1 and 5")

	// ErrRatingNotFound is returned when no rating exists for the pair.
	ErrRatingNotFound = errors.New("rating not found")
)

// Rating is one user's feedback on one event. Overall is required; the
// sub-scores are optional and zero when unset.
type Rating struct {
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	Overall    int       `json:"overall"`
	VenueScore int       `json:"venueScore,omitempty"`
	HostScore  int       `json:"hostScore,omitempty"`
	ValueScore int       `json:"valueScore,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	Visible    bool      `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate checks the overall score and any sub-scores that were provided.
func (r *Rating) Validate() error {
	if r.Overall < MinScore || r.Overall > MaxScore {
		return ErrInvalidScore
	}
	for _, sub := range []int{r.VenueScore, r.HostScore, r.ValueScore} {
		if sub != 0 && (sub < MinScore || sub > MaxScore) {
			return ErrInvalidScore
		}
	}
	return nil
}

// Summary aggregates an event's visible ratings.
type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// Repository defines rating data operations.
type Repository interface {
	// Upsert creates or replaces the user's rating for the event.
	Upsert(ctx context.Context, r *Rating) error

	// ListVisible returns an event's visible ratings, newest first, capped
	// at limit.
	ListVisible(ctx context.Context, eventID string, limit int) ([]*Rating, error)

	// SummaryForEvent returns the count and mean of visible overall scores.
	SummaryForEvent(ctx context.Context, eventID string) (Summary, error)
}

// InMemoryRepository is an in-memory implementation of Repository. Used for
// testing and development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	ratings map[string]*Rating
	now     func() time.Time
}

// NewInMemoryRepository creates an empty in-memory rating repository.
func NewInMemoryRepository(now func() time.Time) *InMemoryRepository {
	if now == nil {
		now = time.Now
	}
	return &InMemoryRepository{ratings: make(map[string]*Rating), now: now}
}

func key(eventID, userID string) string {
	return eventID + "\x00" + userID
}

// Upsert creates or replaces the user's rating for the event.
func (r *InMemoryRepository) Upsert(ctx context.Context, rec *Rating) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(rec.EventID, rec.UserID)
	now := r.now()
	stored := *rec
	stored.UpdatedAt = now
	if existing, ok := r.ratings[k]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	r.ratings[k] = &stored
	return nil
}

// ListVisible returns an event's visible ratings, newest first.
func (r *InMemoryRepository) ListVisible(ctx context.Context, eventID string, limit int) ([]*Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Rating{}
	for _, rec := range r.ratings {
		if rec.EventID == eventID && rec.Visible {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// SummaryForEvent returns the count and mean of visible overall scores.
func (r *InMemoryRepository) SummaryForEvent(ctx context.Context, eventID string) (Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Summary
	total := 0
	for _, rec := range r.ratings {
		if rec.EventID == eventID && rec.Visible {
			s.Count++
			total += rec.Overall
		}
	}
	if s.Count > 0 {
		s.Average = float64(total) / float64(s.Count)
	}
	return s, nil
}
