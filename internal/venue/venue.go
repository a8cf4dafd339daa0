// Package venue provides the venue model and repositories. A venue is an
// optional location anchor for events; it owns no events itself, events hold
// the back-reference.
package venue

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/poqpoq/events-api/internal/event"
)

var (
	// ErrVenueNotFound is returned when no venue exists with the given ID.
	ErrVenueNotFound = errors.New("venue not found")
)

// Venue is a named in-world place events can be anchored to.
type Venue struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Location  event.VirtualLocation `json:"location"`
	Capacity  int                   `json:"capacity,omitempty"`
	Rating    float64               `json:"rating"`
	Category  string                `json:"category,omitempty"`
	Active    bool                  `json:"active"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Repository defines venue data operations.
type Repository interface {
	// List returns active venues, best rated first, ties broken by name,
	// capped at limit.
	List(ctx context.Context, limit int) ([]*Venue, error)

	// GetByID retrieves a venue by its ID, active or not.
	GetByID(ctx context.Context, id string) (*Venue, error)

	// Create stores a new venue.
	Create(ctx context.Context, v *Venue) error
}

// InMemoryRepository is an in-memory implementation of Repository. Used for
// testing and development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	venues map[string]*Venue
}

// NewInMemoryRepository creates an empty in-memory venue repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{venues: make(map[string]*Venue)}
}

// List returns active venues, best rated first, ties broken by name.
func (r *InMemoryRepository) List(ctx context.Context, limit int) ([]*Venue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Venue{}
	for _, v := range r.venues {
		if v.Active {
			c := copyVenue(v)
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// GetByID retrieves a venue by its ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Venue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.venues[id]
	if !ok {
		return nil, ErrVenueNotFound
	}
	return copyVenue(v), nil
}

// Create stores a new venue.
func (r *InMemoryRepository) Create(ctx context.Context, v *Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues[v.ID] = copyVenue(v)
	return nil
}

func copyVenue(v *Venue) *Venue {
	c := *v
	if v.Location.Coordinates != nil {
		coords := *v.Location.Coordinates
		c.Location.Coordinates = &coords
	}
	return &c
}
