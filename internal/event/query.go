package event

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Pagination bounds for the browse endpoint.
const (
	defaultListLimit = 20
	minListLimit     = 1
	maxListLimit     = 50
)

// validSortColumns is the allow-list for ORDER BY. Anything outside it
// silently becomes starts_at; column names are never interpolated from input.
var validSortColumns = map[string]bool{
	"starts_at":     true,
	"traffic_score": true,
	"rsvp_count":    true,
	"created_at":    true,
}

// validStoreMaturity is the store-layer maturity enum.
var validStoreMaturity = map[string]bool{
	StoreMaturityG: true, StoreMaturityPG: true,
	StoreMaturityR: true, StoreMaturityX: true,
}

// ListOptions is the validated server-side filter set for a browse query.
// All fields are safe to pass to the query builder as-is.
type ListOptions struct {
	Categories   []string
	Maturity     []string
	Search       string
	IsFree       bool
	StartsAfter  *time.Time
	StartsBefore *time.Time
	SortColumn   string
	Descending   bool
	Limit        int
	Offset       int
}

// ValidateSortColumn returns raw if allow-listed, else "starts_at".
func ValidateSortColumn(raw string) string {
	if validSortColumns[raw] {
		return raw
	}
	return "starts_at"
}

// ValidateStoreCategories keeps only the 13 known category values from a
// comma-separated list, preserving order.
func ValidateStoreCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(raw, ",") {
		c := strings.TrimSpace(tok)
		if IsValidCategory(Category(c)) {
			out = append(out, c)
		}
	}
	return out
}

// ValidateStoreMaturity keeps only G/PG/R/X from a comma-separated list.
func ValidateStoreMaturity(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(raw, ",") {
		m := strings.TrimSpace(tok)
		if validStoreMaturity[m] {
			out = append(out, m)
		}
	}
	return out
}

func parseIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func parseTimeOrNil(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// ParseListOptions sanitizes untrusted query parameters into ListOptions.
// Malformed input degrades to defaults; this function never fails. The order
// parameter requires the exact string "desc" for descending.
func ParseListOptions(values url.Values) ListOptions {
	offset := parseIntOr(values.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return ListOptions{
		Categories:   ValidateStoreCategories(values.Get("category")),
		Maturity:     ValidateStoreMaturity(values.Get("maturity")),
		Search:       strings.TrimSpace(values.Get("search")),
		IsFree:       values.Get("is_free") == "true",
		StartsAfter:  parseTimeOrNil(values.Get("starts_after")),
		StartsBefore: parseTimeOrNil(values.Get("starts_before")),
		SortColumn:   ValidateSortColumn(values.Get("sort")),
		Descending:   values.Get("order") == "desc",
		Limit:        clamp(parseIntOr(values.Get("limit"), defaultListLimit), minListLimit, maxListLimit),
		Offset:       offset,
	}
}

// BuildListQuery translates ListOptions into a parameterized SELECT over the
// events table. Every value travels as a placeholder parameter; multi-select
// filters use array containment, and text search is a language-aware
// full-text match over title and description (an intentional divergence from
// the in-memory scorer's weighted substring algorithm).
func BuildListQuery(opts ListOptions) (string, []interface{}) {
	conditions := []string{"e.status IN ('published', 'in_progress')"}
	var params []interface{}

	nextParam := func(v interface{}) string {
		params = append(params, v)
		return fmt.Sprintf("$%d", len(params))
	}

	if len(opts.Categories) > 0 {
		conditions = append(conditions, "e.category = ANY("+nextParam(pq.Array(opts.Categories))+")")
	}
	if len(opts.Maturity) > 0 {
		conditions = append(conditions, "e.maturity_rating = ANY("+nextParam(pq.Array(opts.Maturity))+")")
	}
	if opts.Search != "" {
		conditions = append(conditions,
			"to_tsvector('english', COALESCE(e.title,'') || ' ' || COALESCE(e.description,'')) @@ plainto_tsquery('english', "+nextParam(opts.Search)+")")
	}
	if opts.IsFree {
		conditions = append(conditions, "e.entry_fee = 0")
	}
	if opts.StartsAfter != nil {
		conditions = append(conditions, "e.starts_at >= "+nextParam(*opts.StartsAfter))
	}
	if opts.StartsBefore != nil {
		conditions = append(conditions, "e.starts_at <= "+nextParam(*opts.StartsBefore))
	}

	order := "ASC"
	if opts.Descending {
		order = "DESC"
	}

	limit := clamp(opts.Limit, minListLimit, maxListLimit)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	sql := "SELECT " + eventColumns + " FROM events e WHERE " +
		strings.Join(conditions, " AND ") +
		" ORDER BY e." + ValidateSortColumn(opts.SortColumn) + " " + order +
		" LIMIT " + nextParam(limit) + " OFFSET " + nextParam(offset)

	return sql, params
}
