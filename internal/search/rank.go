package search

import (
	"sort"

	"github.com/poqpoq/events-api/internal/event"
)

// Rank orders the filtered candidate set in place. With a text query present,
// results sort by descending relevance score; otherwise one of the four sort
// keys applies. All sorts are stable, so original input order is the implicit
// tie-break in every mode.
func Rank(items []*event.Event, f FilterSet) {
	if f.HasQuery() {
		scores := make(map[string]int, len(items))
		for _, e := range items {
			scores[e.ID] = Score(e, f.Query)
		}
		sort.SliceStable(items, func(i, j int) bool {
			return scores[items[i].ID] > scores[items[j].ID]
		})
		return
	}

	switch f.SortBy {
	case SortPopular:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].TrafficScore > items[j].TrafficScore
		})
	case SortNewest:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
	case SortRating:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].HostReputationScore > items[j].HostReputationScore
		})
	default: // SortSoonest
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].StartTime.Before(items[j].StartTime)
		})
	}
}

// Paginate applies offset then limit to an already ranked list, never the
// reverse. Out-of-range offsets yield an empty slice.
func Paginate(items []*event.Event, limit, offset int) []*event.Event {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
