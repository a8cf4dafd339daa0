package browse

import (
	"time"

	"github.com/poqpoq/events-api/internal/event"
)

// SeedEvents returns the built-in fallback dataset, timed relative to now so
// the board never renders empty or entirely in the past. The entries are
// deliberately spread across categories, price points, and date windows.
func SeedEvents(now time.Time) []*event.Event {
	coords := func(x, y, z float64) *event.Coordinates {
		return &event.Coordinates{X: x, Y: y, Z: z}
	}
	return []*event.Event{
		{
			ID:          "seed-welcome-plaza-social",
			Title:       "Newcomer Welcome Social",
			Description: "Weekly meetup for new residents. Mentors on hand, no experience needed.",
			Category:    event.CategorySocial,
			Tags:        []string{"newcomers", "community"},
			StartTime:   now.Add(-30 * time.Minute),
			EndTime:     now.Add(90 * time.Minute),
			Timezone:    "UTC",
			Location: event.VirtualLocation{
				RegionName:  "Welcome Plaza",
				Coordinates: coords(128, 128, 25),
			},
			OrganizerID:   "seed-org-greeters",
			OrganizerName: "Greeter Guild",
			EntryFee:      0,
			Maturity:      event.MaturityGeneral,
			Status:        event.StatusInProgress,
			TrafficScore:  42,
			CreatedAt:     now.Add(-30 * 24 * time.Hour),
			UpdatedAt:     now.Add(-30 * 24 * time.Hour),
		},
		{
			ID:          "seed-aurora-dj-night",
			Title:       "Aurora Bay DJ Night",
			Description: "Open-air deck set over the water. Bring a dance animation.",
			Category:    event.CategoryMusic,
			Tags:        []string{"dj", "dance", "electronic"},
			StartTime:   now.Add(26 * time.Hour),
			EndTime:     now.Add(29 * time.Hour),
			Timezone:    "UTC",
			Location: event.VirtualLocation{
				RegionName:  "Aurora Bay",
				Coordinates: coords(64, 201, 22),
			},
			OrganizerID:   "seed-org-aurora",
			OrganizerName: "Aurora Collective",
			EntryFee:      0,
			Maturity:      event.MaturityGeneral,
			Status:        event.StatusPublished,
			TrafficScore:  77,
			CreatedAt:     now.Add(-14 * 24 * time.Hour),
			UpdatedAt:     now.Add(-14 * 24 * time.Hour),
		},
		{
			ID:          "seed-gallery-opening",
			Title:       "Fractal Light Gallery Opening",
			Description: "Opening night for a generative art exhibition. Guided tour on the hour.",
			Category:    event.CategoryArt,
			Tags:        []string{"gallery", "generative"},
			StartTime:   now.Add(3 * 24 * time.Hour),
			EndTime:     now.Add(3*24*time.Hour + 2*time.Hour),
			Timezone:    "UTC",
			Location: event.VirtualLocation{
				RegionName:  "Lumen District",
				Coordinates: coords(190, 44, 31),
			},
			OrganizerID:   "seed-org-lumen",
			OrganizerName: "Lumen Curators",
			EntryFee:      250,
			Maturity:      event.MaturityGeneral,
			Status:        event.StatusPublished,
			TrafficScore:  31,
			CreatedAt:     now.Add(-7 * 24 * time.Hour),
			UpdatedAt:     now.Add(-7 * 24 * time.Hour),
		},
		{
			ID:          "seed-builders-workshop",
			Title:       "Mesh Optimization Workshop",
			Description: "Hands-on session on keeping scene complexity down without losing detail.",
			Category:    event.CategoryEducation,
			Tags:        []string{"building", "mesh", "workshop"},
			StartTime:   now.Add(6 * 24 * time.Hour),
			EndTime:     now.Add(6*24*time.Hour + 90*time.Minute),
			Timezone:    "UTC",
			Location: event.VirtualLocation{
				RegionName:  "Builder Commons",
				Coordinates: coords(100, 100, 40),
			},
			OrganizerID:   "seed-org-builders",
			OrganizerName: "Builder Commons",
			EntryFee:      0,
			Maturity:      event.MaturityGeneral,
			Status:        event.StatusPublished,
			TrafficScore:  18,
			CreatedAt:     now.Add(-3 * 24 * time.Hour),
			UpdatedAt:     now.Add(-3 * 24 * time.Hour),
		},
		{
			ID:          "seed-midnight-masquerade",
			Title:       "Midnight Masquerade Ball",
			Description: "Formal dress required. Masks provided at the landing point.",
			Category:    event.CategoryCeremony,
			Tags:        []string{"formal", "dance"},
			StartTime:   now.Add(12 * 24 * time.Hour),
			EndTime:     now.Add(12*24*time.Hour + 4*time.Hour),
			Timezone:    "UTC",
			Location: event.VirtualLocation{
				RegionName:  "Velvet Hollow",
				Coordinates: coords(77, 150, 28),
			},
			OrganizerID:   "seed-org-velvet",
			OrganizerName: "Velvet Hollow Events",
			EntryFee:      500,
			DressCode:     "formal",
			Maturity:      event.MaturityMature,
			Status:        event.StatusPublished,
			TrafficScore:  55,
			CreatedAt:     now.Add(-10 * 24 * time.Hour),
			UpdatedAt:     now.Add(-10 * 24 * time.Hour),
		},
	}
}
