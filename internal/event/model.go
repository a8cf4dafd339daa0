// Package event provides the event domain model, status lifecycle, and
// repositories for the events listings service.
package event

import (
	"errors"
	"time"
)

// Common errors for event operations.
var (
	ErrEventNotFound     = errors.New("event not found")
	ErrNotOwner          = errors.New("not the event owner")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Category classifies an event into one of 13 fixed values.
type Category string

// The 13 primary event categories (mutually exclusive).
const (
	CategorySocial      Category = "social"
	CategoryMusic       Category = "music"
	CategoryArt         Category = "art"
	CategoryEducation   Category = "education"
	CategoryRoleplay    Category = "roleplay"
	CategoryQuest       Category = "quest"
	CategoryCeremony    Category = "ceremony"
	CategoryCommerce    Category = "commerce"
	CategoryExploration Category = "exploration"
	CategoryPerformance Category = "performance"
	CategoryCommunity   Category = "community"
	CategoryCompetition Category = "competition"
	CategorySpecial     Category = "special"
)

// Categories lists all valid categories in canonical order.
var Categories = []Category{
	CategorySocial, CategoryMusic, CategoryArt, CategoryEducation,
	CategoryRoleplay, CategoryQuest, CategoryCeremony, CategoryCommerce,
	CategoryExploration, CategoryPerformance, CategoryCommunity,
	CategoryCompetition, CategorySpecial,
}

var validCategories = func() map[Category]bool {
	m := make(map[Category]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// IsValidCategory reports whether c is one of the 13 known categories.
func IsValidCategory(c Category) bool {
	return validCategories[c]
}

// Maturity is the client-facing content suitability tier.
type Maturity string

// Client-facing maturity ratings.
const (
	MaturityGeneral Maturity = "G"
	MaturityMature  Maturity = "M"
	MaturityAdult   Maturity = "A"
)

// Store-layer maturity ratings as persisted in the events table.
const (
	StoreMaturityG  = "G"
	StoreMaturityPG = "PG"
	StoreMaturityR  = "R"
	StoreMaturityX  = "X"
)

// MaturityFromStore maps a persisted maturity rating (G/PG/R/X) to the
// client-facing tier (G/M/A). PG and G are indistinguishable to clients.
// Unknown values default to G.
func MaturityFromStore(rating string) Maturity {
	switch rating {
	case StoreMaturityG, StoreMaturityPG:
		return MaturityGeneral
	case StoreMaturityR:
		return MaturityMature
	case StoreMaturityX:
		return MaturityAdult
	default:
		return MaturityGeneral
	}
}

// Status is the lifecycle state of an event.
type Status string

// Event lifecycle states.
const (
	StatusDraft      Status = "draft"
	StatusPublished  Status = "published"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// statusTransitions defines the allowed lifecycle transitions.
// completed and cancelled are terminal.
var statusTransitions = map[Status][]Status{
	StatusDraft:      {StatusPublished, StatusCancelled},
	StatusPublished:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether the status may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status allows no further transitions.
func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// Coordinates is a 3-D position inside a virtual region.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DefaultCoordinates is substituted when a row carries no location coords.
var DefaultCoordinates = Coordinates{X: 128, Y: 128, Z: 25}

// VirtualLocation anchors an event or venue inside the virtual world.
type VirtualLocation struct {
	RegionName  string       `json:"regionName"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	TeleportURL string       `json:"teleportUrl,omitempty"`
}

// TicketTier describes one priced admission tier for an event.
type TicketTier struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Currency  string `json:"currency"`
	Available int    `json:"available"`
	Total     int    `json:"total"`
}

// Event is the central entity of the listings service. Field names follow the
// client-facing camelCase model; the row mapper translates from the snake_case
// store columns.
type Event struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Summary     string   `json:"summary,omitempty"`
	Category    Category `json:"category"`
	Tags        []string `json:"tags"`

	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	Timezone        string    `json:"timezone"`
	DurationMinutes int       `json:"durationMinutes"`

	Recurrence string `json:"recurrence,omitempty"`
	SeriesID   string `json:"seriesId,omitempty"`

	Location    VirtualLocation `json:"location"`
	ExternalURL string          `json:"externalUrl,omitempty"`

	CoverImage string   `json:"coverImage,omitempty"`
	Gallery    []string `json:"gallery,omitempty"`

	OrganizerID     string `json:"organizerId"`
	OrganizerName   string `json:"organizerName"`
	OrganizerAvatar string `json:"organizerAvatar,omitempty"`

	Capacity        *int `json:"capacity"`
	AttendeeCount   int  `json:"attendeeCount"`
	InterestedCount int  `json:"interestedCount"`

	Tickets  []TicketTier `json:"tickets"`
	EntryFee int          `json:"entryFee"`

	Maturity         Maturity `json:"maturity"`
	DressCode        string   `json:"dressCode"`
	DressCodeDetails string   `json:"dressCodeDetails,omitempty"`

	Status   Status `json:"status"`
	Featured bool   `json:"featured"`

	TrafficScore        float64 `json:"trafficScore"`
	ViewCount           int     `json:"viewCount"`
	BookmarkCount       int     `json:"bookmarkCount"`
	HostReputationScore float64 `json:"hostReputationScore"`
	HostEventsCompleted int     `json:"hostEventsCompleted"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	VenueID string `json:"venueId,omitempty"`
}

// IsFree reports whether the event charges no entry fee. Ticket tiers do not
// factor in: the fee column alone decides free vs paid.
func (e *Event) IsFree() bool {
	return e.EntryFee == 0
}

// Duration returns the span between start and end times.
func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}
