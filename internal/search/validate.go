package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/poqpoq/events-api/internal/event"
)

// Validation here is deliberately lossy, never failing: discovery endpoints
// favor availability over strictness. Unrecognized tokens are dropped,
// unparsable numbers fall back to defaults, and out-of-range pagination is
// clamped. No function in this file returns an error.

var validDateFilters = map[DateFilter]bool{
	DateAll: true, DateHappeningNow: true, DateToday: true,
	DateThisWeek: true, DateThisWeekend: true, DateThisMonth: true,
}

var validPriceFilters = map[PriceFilter]bool{
	PriceAll: true, PriceFree: true, PricePaid: true,
}

var validSortKeys = map[SortBy]bool{
	SortSoonest: true, SortPopular: true, SortNewest: true, SortRating: true,
}

var validMaturity = map[event.Maturity]bool{
	event.MaturityGeneral: true,
	event.MaturityMature:  true,
	event.MaturityAdult:   true,
}

// Clamp bounds val into [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// ParseIntOr parses raw as a base-10 integer, returning fallback on failure.
func ParseIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

// ParseCategories splits a comma-separated list and keeps only known
// categories, preserving order. Duplicates pass through; they are harmless.
func ParseCategories(raw string) []event.Category {
	if raw == "" {
		return nil
	}
	var out []event.Category
	for _, tok := range strings.Split(raw, ",") {
		c := event.Category(strings.TrimSpace(tok))
		if event.IsValidCategory(c) {
			out = append(out, c)
		}
	}
	return out
}

// ParseMaturity splits a comma-separated list and keeps only the client-facing
// ratings G, M, and A.
func ParseMaturity(raw string) []event.Maturity {
	if raw == "" {
		return nil
	}
	var out []event.Maturity
	for _, tok := range strings.Split(raw, ",") {
		m := event.Maturity(strings.TrimSpace(tok))
		if validMaturity[m] {
			out = append(out, m)
		}
	}
	return out
}

// ParseSortBy returns the sort key if allow-listed, else the default.
func ParseSortBy(raw string) SortBy {
	s := SortBy(raw)
	if validSortKeys[s] {
		return s
	}
	return SortSoonest
}

// ParseDateFilter returns the date filter if recognized, else "all".
func ParseDateFilter(raw string) DateFilter {
	f := DateFilter(raw)
	if validDateFilters[f] {
		return f
	}
	return DateAll
}

// ParsePriceFilter returns the price filter if recognized, else "all".
func ParsePriceFilter(raw string) PriceFilter {
	f := PriceFilter(raw)
	if validPriceFilters[f] {
		return f
	}
	return PriceAll
}

// ParseFilterSet builds a FilterSet from raw, possibly attacker-controlled
// query values. The result is always structurally safe to use. Absent maturity
// input keeps the general-audience default.
func ParseFilterSet(values url.Values) FilterSet {
	f := DefaultFilters()

	f.Query = strings.TrimSpace(values.Get("search"))
	f.Categories = ParseCategories(values.Get("category"))
	if m := ParseMaturity(values.Get("maturity")); len(m) > 0 {
		f.Maturity = m
	}
	f.DateFilter = ParseDateFilter(values.Get("date"))
	f.PriceFilter = ParsePriceFilter(values.Get("price"))
	f.SortBy = ParseSortBy(values.Get("sort"))
	f.Limit = Clamp(ParseIntOr(values.Get("limit"), DefaultLimit), MinLimit, MaxLimit)
	f.Offset = ParseIntOr(values.Get("offset"), 0)
	if f.Offset < 0 {
		f.Offset = 0
	}

	return f
}
