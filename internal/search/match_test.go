package search

import (
	"testing"
	"time"

	"github.com/poqpoq/events-api/internal/event"
)

func matchEvent(mutate func(*event.Event)) *event.Event {
	e := &event.Event{
		ID:        "evt-m",
		Title:     "Fractal Gallery Opening",
		Category:  event.CategoryArt,
		Maturity:  event.MaturityGeneral,
		Status:    event.StatusPublished,
		StartTime: fixedNow.Add(time.Hour),
		EndTime:   fixedNow.Add(3 * time.Hour),
	}
	if mutate != nil {
		mutate(e)
	}
	return e
}

func TestMatchesStatusVisibility(t *testing.T) {
	f := DefaultFilters()

	tests := []struct {
		name   string
		status event.Status
		want   bool
	}{
		{"draft visible", event.StatusDraft, true},
		{"published visible", event.StatusPublished, true},
		{"in progress visible", event.StatusInProgress, true},
		{"completed hidden", event.StatusCompleted, false},
		{"cancelled hidden", event.StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := matchEvent(func(e *event.Event) { e.Status = tt.status })
			if got := Matches(e, f, fixedNow); got != tt.want {
				t.Errorf("Matches with status %q = %v, want %v", tt.status, got, tt.want)
			}
		})
	}

	t.Run("flags cleared shows terminal states", func(t *testing.T) {
		f := DefaultFilters()
		f.HideCompleted = false
		f.HideCancelled = false
		e := matchEvent(func(e *event.Event) { e.Status = event.StatusCompleted })
		if !Matches(e, f, fixedNow) {
			t.Error("expected completed event visible with HideCompleted false")
		}
	})
}

func TestMatchesCategory(t *testing.T) {
	e := matchEvent(nil)

	f := DefaultFilters()
	f.Categories = []event.Category{event.CategoryArt, event.CategoryMusic}
	if !Matches(e, f, fixedNow) {
		t.Error("expected art event to match art+music filter")
	}

	f.Categories = []event.Category{event.CategoryMusic}
	if Matches(e, f, fixedNow) {
		t.Error("expected art event excluded by music-only filter")
	}

	f.Categories = nil
	if !Matches(e, f, fixedNow) {
		t.Error("expected empty category set to match everything")
	}
}

func TestMatchesMaturity(t *testing.T) {
	adult := matchEvent(func(e *event.Event) { e.Maturity = event.MaturityAdult })

	f := DefaultFilters() // general-audience only
	if Matches(adult, f, fixedNow) {
		t.Error("expected adult event hidden from general-audience default")
	}

	f.Maturity = []event.Maturity{event.MaturityGeneral, event.MaturityMature, event.MaturityAdult}
	if !Matches(adult, f, fixedNow) {
		t.Error("expected adult event visible when opted in")
	}

	f.Maturity = nil
	if !Matches(adult, f, fixedNow) {
		t.Error("expected empty maturity set to match everything")
	}
}

func TestMatchesPrice(t *testing.T) {
	free := matchEvent(nil)
	paid := matchEvent(func(e *event.Event) { e.EntryFee = 250 })

	f := DefaultFilters()
	f.PriceFilter = PriceFree
	if !Matches(free, f, fixedNow) || Matches(paid, f, fixedNow) {
		t.Error("free filter should keep free and drop paid")
	}

	f.PriceFilter = PricePaid
	if Matches(free, f, fixedNow) || !Matches(paid, f, fixedNow) {
		t.Error("paid filter should keep paid and drop free")
	}

	// Ticket tiers do not make an event paid; only the fee does.
	ticketed := matchEvent(func(e *event.Event) {
		e.Tickets = []event.TicketTier{{ID: "vip", Name: "VIP", Price: 500}}
	})
	f.PriceFilter = PriceFree
	if !Matches(ticketed, f, fixedNow) {
		t.Error("zero-fee event with ticket tiers should still count as free")
	}
}

func TestMatchesHappeningNow(t *testing.T) {
	f := DefaultFilters()
	f.DateFilter = DateHappeningNow

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"running", fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), true},
		{"starts exactly now", fixedNow, fixedNow.Add(time.Hour), true},
		{"ends exactly now is over", fixedNow.Add(-time.Hour), fixedNow, false},
		{"not started", fixedNow.Add(time.Minute), fixedNow.Add(time.Hour), false},
		{"already over", fixedNow.Add(-2 * time.Hour), fixedNow.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := matchEvent(func(e *event.Event) {
				e.StartTime = tt.start
				e.EndTime = tt.end
			})
			if got := Matches(e, f, fixedNow); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesDateWindowOverlap(t *testing.T) {
	f := DefaultFilters()
	f.DateFilter = DateToday

	// Multi-day event that started yesterday and runs through tomorrow
	// overlaps today's window.
	spanning := matchEvent(func(e *event.Event) {
		e.StartTime = fixedNow.AddDate(0, 0, -1)
		e.EndTime = fixedNow.AddDate(0, 0, 1)
	})
	if !Matches(spanning, f, fixedNow) {
		t.Error("expected multi-day event overlapping today to match")
	}

	tomorrow := matchEvent(func(e *event.Event) {
		e.StartTime = fixedNow.AddDate(0, 0, 1)
		e.EndTime = fixedNow.AddDate(0, 0, 1).Add(2 * time.Hour)
	})
	if Matches(tomorrow, f, fixedNow) {
		t.Error("expected tomorrow's event excluded from today filter")
	}
}

func TestMatchesQuery(t *testing.T) {
	e := matchEvent(func(e *event.Event) { e.Description = "generative fractal art showcase" })

	f := DefaultFilters()
	f.Query = "fractal"
	if !Matches(e, f, fixedNow) {
		t.Error("expected query hit to match")
	}

	f.Query = "techno"
	if Matches(e, f, fixedNow) {
		t.Error("expected zero-score query to exclude the event")
	}
}
