// Package search implements the filtering, relevance scoring, and ranking
// engine that powers event discovery. The same filter semantics are evaluated
// by the in-memory engine here and translated to SQL by the event repository.
package search

import (
	"github.com/poqpoq/events-api/internal/event"
)

// DateFilter selects one of the predefined date-range windows.
type DateFilter string

// Supported date filters.
const (
	DateAll          DateFilter = "all"
	DateHappeningNow DateFilter = "happening-now"
	DateToday        DateFilter = "today"
	DateThisWeek     DateFilter = "this-week"
	DateThisWeekend  DateFilter = "this-weekend"
	DateThisMonth    DateFilter = "this-month"
)

// PriceFilter restricts results by entry fee.
type PriceFilter string

// Supported price filters.
const (
	PriceAll  PriceFilter = "all"
	PriceFree PriceFilter = "free"
	PricePaid PriceFilter = "paid"
)

// SortBy selects the ordering applied when no text query is present.
type SortBy string

// Supported sort keys.
const (
	SortSoonest SortBy = "soonest"
	SortPopular SortBy = "popular"
	SortNewest  SortBy = "newest"
	SortRating  SortBy = "rating"
)

// Pagination bounds for discovery queries.
const (
	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 50
)

// FilterSet is the validated, typed set of search constraints for one query.
// Values are always safe to evaluate: enum fields only ever hold known values
// and pagination is clamped. Callers own their FilterSet; the engine never
// mutates it.
type FilterSet struct {
	Query       string
	Categories  []event.Category
	Maturity    []event.Maturity
	DateFilter  DateFilter
	PriceFilter PriceFilter
	SortBy      SortBy

	// Status visibility flags; both default to true for discovery feeds.
	HideCompleted bool
	HideCancelled bool

	Limit  int
	Offset int
}

// DefaultFilters returns the baseline filter set for public discovery:
// general-audience content only, all dates and prices, soonest first.
func DefaultFilters() FilterSet {
	return FilterSet{
		Query:         "",
		Categories:    nil,
		Maturity:      []event.Maturity{event.MaturityGeneral},
		DateFilter:    DateAll,
		PriceFilter:   PriceAll,
		SortBy:        SortSoonest,
		HideCompleted: true,
		HideCancelled: true,
		Limit:         DefaultLimit,
		Offset:        0,
	}
}

// HasQuery reports whether a free-text query is active, which switches the
// ranker into relevance mode.
func (f FilterSet) HasQuery() bool {
	return f.Query != ""
}
