package middleware

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		// Static routes - no normalization
		{
			name:     "root path",
			path:     "/",
			expected: "/",
		},
		{
			name:     "events collection",
			path:     "/api/events",
			expected: "/api/events",
		},
		{
			name:     "happening now feed",
			path:     "/api/events/happening-now",
			expected: "/api/events/happening-now",
		},
		{
			name:     "featured feed",
			path:     "/api/events/featured",
			expected: "/api/events/featured",
		},
		{
			name:     "upcoming feed",
			path:     "/api/events/upcoming",
			expected: "/api/events/upcoming",
		},
		{
			name:     "venues collection",
			path:     "/api/venues",
			expected: "/api/venues",
		},
		{
			name:     "health endpoint",
			path:     "/health",
			expected: "/health",
		},
		{
			name:     "ready endpoint",
			path:     "/ready",
			expected: "/ready",
		},
		{
			name:     "metrics endpoint",
			path:     "/metrics",
			expected: "/metrics",
		},

		// Event patterns
		{
			name:     "event by id",
			path:     "/api/events/123",
			expected: "/api/events/{id}",
		},
		{
			name:     "event by uuid",
			path:     "/api/events/550e8400-e29b-41d4-a716-446655440000",
			expected: "/api/events/{id}",
		},
		{
			name:     "event rsvp",
			path:     "/api/events/456/rsvp",
			expected: "/api/events/{id}/rsvp",
		},
		{
			name:     "event rate",
			path:     "/api/events/456/rate",
			expected: "/api/events/{id}/rate",
		},
		{
			name:     "event ratings",
			path:     "/api/events/456/ratings",
			expected: "/api/events/{id}/ratings",
		},
		{
			name:     "event attendees",
			path:     "/api/events/789/attendees",
			expected: "/api/events/{id}/attendees",
		},

		// Lookup patterns
		{
			name:     "events by organizer",
			path:     "/api/events/by-organizer/user-42",
			expected: "/api/events/by-organizer/{id}",
		},
		{
			name:     "events by venue",
			path:     "/api/events/by-venue/venue-7",
			expected: "/api/events/by-venue/{id}",
		},
		{
			name:     "events by series",
			path:     "/api/events/by-series/series-3",
			expected: "/api/events/by-series/{id}",
		},

		// Venue patterns
		{
			name:     "venue by id",
			path:     "/api/venues/abc123",
			expected: "/api/venues/{id}",
		},

		// Edge cases
		{
			name:     "trailing slash on collection",
			path:     "/api/events/",
			expected: "/api/events/",
		},
		{
			name:     "unknown route",
			path:     "/unknown/path",
			expected: "/unknown/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizePath(tt.path)
			if result != tt.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestNormalizePath_CardinalityControl(t *testing.T) {
	// Test that different IDs normalize to the same pattern
	paths := []string{
		"/api/events/1",
		"/api/events/2",
		"/api/events/999",
		"/api/events/550e8400-e29b-41d4-a716-446655440000",
		"/api/events/abc-def-ghi",
	}

	expected := "/api/events/{id}"
	seen := make(map[string]bool)

	for _, path := range paths {
		result := normalizePath(path)
		if result != expected {
			t.Errorf("normalizePath(%q) = %q, want %q", path, result, expected)
		}
		seen[result] = true
	}

	// Should all normalize to the same pattern (low cardinality)
	if len(seen) != 1 {
		t.Errorf("Expected all paths to normalize to single pattern, got %d patterns: %v", len(seen), seen)
	}
}
