package browse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poqpoq/events-api/internal/event"
	"github.com/poqpoq/events-api/internal/search"
)

var browseNow = time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)

func listingsServer(t *testing.T, events []*event.Event) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(events); err != nil {
			t.Errorf("failed to encode listings: %v", err)
		}
	}))
}

func apiEvents() []*event.Event {
	return []*event.Event{
		{
			ID: "api-live", Title: "Harbor Jam", Category: event.CategoryMusic,
			Maturity: event.MaturityGeneral, Status: event.StatusInProgress,
			StartTime: browseNow.Add(-time.Hour), EndTime: browseNow.Add(time.Hour),
		},
		{
			ID: "api-talk", Title: "Scripting Roundtable", Category: event.CategoryEducation,
			Maturity: event.MaturityGeneral, Status: event.StatusPublished,
			StartTime: browseNow.Add(48 * time.Hour), EndTime: browseNow.Add(50 * time.Hour),
		},
	}
}

func TestClientStartsOnSeedData(t *testing.T) {
	c := NewClient("http://unused", WithClock(func() time.Time { return browseNow }))

	if !c.Stale() {
		t.Error("client should report stale before any successful refresh")
	}
	if !c.FetchedAt().IsZero() {
		t.Error("FetchedAt should be zero on seed data")
	}

	events, err := c.Events(context.Background())
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("seed snapshot is empty; the board would render blank")
	}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	srv := listingsServer(t, apiEvents())
	defer srv.Close()

	c := NewClient(srv.URL, WithClock(func() time.Time { return browseNow }))
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if c.Stale() {
		t.Error("client should not be stale after a successful refresh")
	}
	if !c.FetchedAt().Equal(browseNow) {
		t.Errorf("FetchedAt = %v, want clock time", c.FetchedAt())
	}

	events, _ := c.Events(context.Background())
	if len(events) != 2 || events[0].ID != "api-live" {
		t.Errorf("snapshot = %d events, want the fetched payload", len(events))
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	srv := listingsServer(t, apiEvents())
	c := NewClient(srv.URL, WithClock(func() time.Time { return browseNow }))
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	srv.Close()

	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("refresh against a dead server should fail")
	}
	if !c.Stale() {
		t.Error("failed refresh should mark the snapshot stale")
	}

	// The last-known-good payload survives the failure.
	events, _ := c.Events(context.Background())
	if len(events) != 2 {
		t.Errorf("snapshot lost after failed refresh: %d events", len(events))
	}
}

func TestRefreshRejectsErrorStatus(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithClock(func() time.Time { return browseNow }))
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("non-200 response should fail the refresh")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if !c.Stale() {
		t.Error("client should stay stale")
	}
}

func TestSearchRunsLocally(t *testing.T) {
	srv := listingsServer(t, apiEvents())
	defer srv.Close()

	c := NewClient(srv.URL, WithClock(func() time.Time { return browseNow }))
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	f := search.DefaultFilters()
	f.Categories = []event.Category{event.CategoryEducation}
	results, total := c.Search(context.Background(), f)
	if total != 1 || len(results) != 1 || results[0].ID != "api-talk" {
		t.Errorf("got %d results (total %d), want the roundtable only", len(results), total)
	}
}

func TestSearchWorksOffline(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", WithClock(func() time.Time { return browseNow }))
	_ = c.Refresh(context.Background()) // fails; seed data remains

	results, total := c.Search(context.Background(), search.DefaultFilters())
	if total == 0 || len(results) == 0 {
		t.Error("offline search over seed data returned nothing")
	}
}

func TestSeedEventsAreRelativeToNow(t *testing.T) {
	events := SeedEvents(browseNow)
	if len(events) == 0 {
		t.Fatal("no seed events")
	}

	var live, upcoming int
	for _, e := range events {
		if !e.StartTime.After(browseNow) && e.EndTime.After(browseNow) {
			live++
		}
		if e.StartTime.After(browseNow) {
			upcoming++
		}
	}
	if live == 0 {
		t.Error("seed data should include at least one live event")
	}
	if upcoming == 0 {
		t.Error("seed data should include upcoming events")
	}

	for _, e := range events {
		if !e.EndTime.After(e.StartTime) {
			t.Errorf("seed event %s has an inverted time range", e.ID)
		}
		if !event.IsValidCategory(e.Category) {
			t.Errorf("seed event %s has unknown category %q", e.ID, e.Category)
		}
	}
}
