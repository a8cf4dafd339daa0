package search

import "time"

// Window is an inclusive time range used by bounded date filters.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the span [start, end] intersects the window at all.
// A multi-day event reaching into the window from before it still matches.
func (w Window) Overlaps(start, end time.Time) bool {
	return !start.After(w.End) && !end.Before(w.Start)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999_000_000, t.Location())
}

// DateWindow resolves a bounded date filter to its window relative to now.
// The second return is false for DateAll and DateHappeningNow, which have no
// bounded window: "all" matches everything and "happening-now" is the
// half-open instant check handled by the evaluator.
func DateWindow(filter DateFilter, now time.Time) (Window, bool) {
	todayStart := startOfDay(now)

	switch filter {
	case DateToday:
		return Window{Start: todayStart, End: endOfDay(now)}, true

	case DateThisWeek:
		// The week ends on the upcoming Saturday: today + (7 - weekday),
		// with Sunday = 0.
		weekEnd := todayStart.AddDate(0, 0, 7-int(now.Weekday()))
		return Window{Start: todayStart, End: endOfDay(weekEnd)}, true

	case DateThisWeekend:
		// Upcoming Saturday through Sunday; on Saturday or Sunday the
		// window starts today.
		dow := int(now.Weekday())
		daysUntilSat := 0
		if dow >= 1 && dow <= 5 {
			daysUntilSat = 6 - dow
		}
		satStart := todayStart.AddDate(0, 0, daysUntilSat)
		sunEnd := satStart.AddDate(0, 0, 1)
		return Window{Start: satStart, End: endOfDay(sunEnd)}, true

	case DateThisMonth:
		// Day 0 of next month is the last day of the current month.
		y, m, _ := now.Date()
		monthEnd := time.Date(y, m+1, 0, 0, 0, 0, 0, now.Location())
		return Window{Start: todayStart, End: endOfDay(monthEnd)}, true
	}

	return Window{}, false
}
