package search

import (
	"strings"

	"github.com/poqpoq/events-api/internal/event"
)

// Field weights for relevance scoring. A token hitting several fields scores
// on each of them, and every token contributes independently.
const (
	weightTitle       = 5
	weightRegion      = 3
	weightOrganizer   = 3
	weightCategory    = 2
	weightDescription = 1
	weightTag         = 1
)

// Score computes a non-negative relevance score for a free-text query against
// an event's fields. The query is lowercased and split on whitespace; each
// token scores a case-insensitive substring match per field.
//
// A zero score from a non-empty query means "no match, excluded". An empty
// query scores zero by convention, and callers must treat that as "text
// predicate does not apply" rather than "no matches".
func Score(e *event.Event, query string) int {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}

	title := strings.ToLower(e.Title)
	region := strings.ToLower(e.Location.RegionName)
	organizer := strings.ToLower(e.OrganizerName)
	category := strings.ToLower(string(e.Category))
	description := strings.ToLower(e.Description)

	score := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += weightTitle
		}
		if strings.Contains(region, term) {
			score += weightRegion
		}
		if strings.Contains(organizer, term) {
			score += weightOrganizer
		}
		if strings.Contains(category, term) {
			score += weightCategory
		}
		if strings.Contains(description, term) {
			score += weightDescription
		}
		for _, tag := range e.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				score += weightTag
				break
			}
		}
	}

	return score
}
