package search

import (
	"context"
	"time"

	"github.com/poqpoq/events-api/internal/event"
)

// Source supplies the materialized candidate collection for one evaluation.
// The engine treats the returned slice as an immutable snapshot for the
// duration of a single Search call.
type Source interface {
	Events(ctx context.Context) ([]*event.Event, error)
}

// Engine is the in-memory query executor: it runs the filter predicate,
// scorer, and ranker over a fully materialized event collection. Each call is
// independent; no state accumulates between queries, so the engine can be
// invoked at arbitrary frequency.
type Engine struct {
	source Source
	now    func() time.Time
}

// NewEngine creates an engine over the given source. A nil clock defaults to
// time.Now; tests inject a fixed clock for deterministic date windows.
func NewEngine(source Source, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{source: source, now: now}
}

// Search evaluates the filter set against the source snapshot and returns the
// ordered page plus the total match count before pagination. An empty result
// is a valid outcome, not an error; errors only signal source failure.
func (s *Engine) Search(ctx context.Context, f FilterSet) ([]*event.Event, int, error) {
	candidates, err := s.source.Events(ctx)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	matched := make([]*event.Event, 0, len(candidates))
	for _, e := range candidates {
		if Matches(e, f, now) {
			matched = append(matched, e)
		}
	}

	Rank(matched, f)
	total := len(matched)
	return Paginate(matched, f.Limit, f.Offset), total, nil
}
