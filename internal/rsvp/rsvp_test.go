package rsvp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsValidStatus(t *testing.T) {
	for _, s := range []string{StatusGoing, StatusInterested, StatusMaybe, StatusNotGoing} {
		if !IsValidStatus(s) {
			t.Errorf("status %q reported invalid", s)
		}
	}
	for _, s := range []string{"", "attending", "GOING", "yes"} {
		if IsValidStatus(s) {
			t.Errorf("status %q should be invalid", s)
		}
	}
}

func TestUpsertReplacesStatus(t *testing.T) {
	base := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	clock := base
	r := NewInMemoryRepository(func() time.Time { return clock })
	ctx := context.Background()

	if err := r.Upsert(ctx, &RSVP{EventID: "e1", UserID: "u1", Status: StatusGoing}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	clock = base.Add(time.Hour)
	if err := r.Upsert(ctx, &RSVP{EventID: "e1", UserID: "u1", Status: StatusMaybe}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := r.GetByEventAndUser(ctx, "e1", "u1")
	if err != nil {
		t.Fatalf("GetByEventAndUser failed: %v", err)
	}
	if got.Status != StatusMaybe {
		t.Errorf("Status = %q, want maybe", got.Status)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want original %v", got.CreatedAt, base)
	}
	if !got.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v, want bumped", got.UpdatedAt)
	}

	counts, _ := r.CountsForEvent(ctx, "e1")
	if counts.Going != 0 || counts.Maybe != 1 {
		t.Errorf("counts = %+v, want replaced not stacked", counts)
	}
}

func TestDelete(t *testing.T) {
	r := NewInMemoryRepository(nil)
	ctx := context.Background()

	if err := r.Delete(ctx, "e1", "u1"); !errors.Is(err, ErrRSVPNotFound) {
		t.Errorf("delete of missing rsvp err = %v, want ErrRSVPNotFound", err)
	}

	_ = r.Upsert(ctx, &RSVP{EventID: "e1", UserID: "u1", Status: StatusGoing})
	if err := r.Delete(ctx, "e1", "u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := r.GetByEventAndUser(ctx, "e1", "u1"); !errors.Is(err, ErrRSVPNotFound) {
		t.Errorf("rsvp still present after delete: %v", err)
	}
}

func TestCountsForEvent(t *testing.T) {
	r := NewInMemoryRepository(nil)
	ctx := context.Background()

	for i, st := range []string{StatusGoing, StatusGoing, StatusInterested, StatusMaybe, StatusNotGoing} {
		_ = r.Upsert(ctx, &RSVP{EventID: "e1", UserID: string(rune('a' + i)), Status: st})
	}
	_ = r.Upsert(ctx, &RSVP{EventID: "other", UserID: "z", Status: StatusGoing})

	counts, err := r.CountsForEvent(ctx, "e1")
	if err != nil {
		t.Fatalf("CountsForEvent failed: %v", err)
	}
	if counts.Going != 2 || counts.Interested != 1 || counts.Maybe != 1 {
		t.Errorf("counts = %+v, want 2/1/1", counts)
	}
}

// Attendees joins going and interested, oldest RSVP first; maybe and not_going
// never appear.
func TestAttendees(t *testing.T) {
	base := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	clock := base
	r := NewInMemoryRepository(func() time.Time { return clock })
	ctx := context.Background()

	submissions := []struct {
		user   string
		status string
	}{
		{"first-going", StatusGoing},
		{"second-interested", StatusInterested},
		{"third-maybe", StatusMaybe},
		{"fourth-going", StatusGoing},
		{"fifth-notgoing", StatusNotGoing},
	}
	for _, s := range submissions {
		_ = r.Upsert(ctx, &RSVP{EventID: "e1", UserID: s.user, Status: s.status})
		clock = clock.Add(time.Minute)
	}

	got, err := r.Attendees(ctx, "e1", 100)
	if err != nil {
		t.Fatalf("Attendees failed: %v", err)
	}
	want := []string{"first-going", "second-interested", "fourth-going"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	capped, _ := r.Attendees(ctx, "e1", 2)
	if len(capped) != 2 || capped[0] != "first-going" || capped[1] != "second-interested" {
		t.Errorf("capped = %v", capped)
	}
}
