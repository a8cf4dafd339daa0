package search

import (
	"time"

	"github.com/poqpoq/events-api/internal/event"
)

// Matches is the pure filter predicate: it reports whether a candidate event
// belongs to the result set for the given filters, evaluated at now. It ANDs
// the independent sub-predicates and never mutates the event, so it is safe to
// evaluate concurrently and repeatedly.
func Matches(e *event.Event, f FilterSet, now time.Time) bool {
	if !statusMatches(e, f) {
		return false
	}
	if !inCategorySet(e.Category, f.Categories) {
		return false
	}
	if !inMaturitySet(e.Maturity, f.Maturity) {
		return false
	}
	if !dateMatches(e, f.DateFilter, now) {
		return false
	}
	if !priceMatches(e, f.PriceFilter) {
		return false
	}
	if f.HasQuery() && Score(e, f.Query) == 0 {
		return false
	}
	return true
}

// statusMatches applies the visibility flags. Completed and cancelled events
// are hidden from default discovery feeds; callers listing an owner's events
// or past events clear the flags instead.
func statusMatches(e *event.Event, f FilterSet) bool {
	if f.HideCompleted && e.Status == event.StatusCompleted {
		return false
	}
	if f.HideCancelled && e.Status == event.StatusCancelled {
		return false
	}
	return true
}

// inCategorySet treats an empty set as "no restriction". An event carrying an
// unknown category value from the data source simply never matches a
// non-empty set.
func inCategorySet(c event.Category, set []event.Category) bool {
	if len(set) == 0 {
		return true
	}
	for _, want := range set {
		if c == want {
			return true
		}
	}
	return false
}

func inMaturitySet(m event.Maturity, set []event.Maturity) bool {
	if len(set) == 0 {
		return true
	}
	for _, want := range set {
		if m == want {
			return true
		}
	}
	return false
}

func priceMatches(e *event.Event, f PriceFilter) bool {
	switch f {
	case PriceFree:
		return e.EntryFee == 0
	case PricePaid:
		return e.EntryFee > 0
	default:
		return true
	}
}

// dateMatches evaluates the date-range predicate. happening-now is a
// half-open interval check: an event ending exactly at now is not happening
// now. Bounded windows use overlap semantics, not containment.
func dateMatches(e *event.Event, filter DateFilter, now time.Time) bool {
	switch filter {
	case DateAll:
		return true
	case DateHappeningNow:
		return !e.StartTime.After(now) && e.EndTime.After(now)
	default:
		w, ok := DateWindow(filter, now)
		if !ok {
			return true
		}
		return w.Overlaps(e.StartTime, e.EndTime)
	}
}
