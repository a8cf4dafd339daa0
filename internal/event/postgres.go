package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/poqpoq/events-api/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// List runs the translated browse query against the events table.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (_ []*Event, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "events", "query")
	defer func() { end(err) }()

	query, params := BuildListQuery(opts)
	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return scanEvents(rows)
}

// GetByID retrieves an event by its ID regardless of status.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Event, error) {
	ctx, end := tracing.StartDBSpan(ctx, "events", "query")

	query := "SELECT " + eventColumns + " FROM events e WHERE e.id = $1"
	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		end(nil)
		return nil, ErrEventNotFound
	}
	if err != nil {
		end(err)
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	end(nil)
	return e, nil
}

// HappeningNow returns events whose interval contains now, soonest-ending
// first. The interval is half-open: ends_at must be strictly in the future.
func (r *PostgresRepository) HappeningNow(ctx context.Context, limit int) ([]*Event, error) {
	query := "SELECT " + eventColumns + ` FROM events e
		WHERE e.status IN ('published', 'in_progress')
		  AND e.starts_at <= NOW() AND e.ends_at > NOW()
		ORDER BY e.ends_at ASC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, clamp(limit, minListLimit, maxListLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list live events: %w", err)
	}
	return scanEvents(rows)
}

// Featured returns curated events that have not yet ended.
func (r *PostgresRepository) Featured(ctx context.Context, limit int) ([]*Event, error) {
	query := "SELECT " + eventColumns + ` FROM events e
		WHERE e.featured = TRUE
		  AND e.status IN ('published', 'in_progress')
		  AND e.ends_at > NOW()
		ORDER BY e.starts_at ASC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, clamp(limit, minListLimit, maxListLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list featured events: %w", err)
	}
	return scanEvents(rows)
}

// Upcoming returns published events starting after now, soonest first.
func (r *PostgresRepository) Upcoming(ctx context.Context, limit, offset int) ([]*Event, error) {
	if offset < 0 {
		offset = 0
	}
	query := "SELECT " + eventColumns + ` FROM events e
		WHERE e.status = 'published' AND e.starts_at > NOW()
		ORDER BY e.starts_at ASC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, clamp(limit, minListLimit, maxListLimit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return scanEvents(rows)
}

// ListByOrganizer returns all of an organizer's events, any status, newest
// start first. Organizers see their own drafts and cancelled events here.
func (r *PostgresRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]*Event, error) {
	query := "SELECT " + eventColumns + ` FROM events e
		WHERE e.creator_id = $1
		ORDER BY e.starts_at DESC`
	rows, err := r.db.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizer events: %w", err)
	}
	return scanEvents(rows)
}

// ListByVenue returns published and in-progress events at a venue.
func (r *PostgresRepository) ListByVenue(ctx context.Context, venueID string) ([]*Event, error) {
	query := "SELECT " + eventColumns + ` FROM events e
		WHERE e.venue_id = $1 AND e.status IN ('published', 'in_progress')
		ORDER BY e.starts_at ASC`
	rows, err := r.db.QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list venue events: %w", err)
	}
	return scanEvents(rows)
}

// ListBySeries returns all occurrences of a recurring series, soonest first.
func (r *PostgresRepository) ListBySeries(ctx context.Context, seriesID string) ([]*Event, error) {
	query := "SELECT " + eventColumns + ` FROM events e
		WHERE e.series_id = $1
		ORDER BY e.starts_at ASC`
	rows, err := r.db.QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to list series events: %w", err)
	}
	return scanEvents(rows)
}

// Create stores a new event.
func (r *PostgresRepository) Create(ctx context.Context, e *Event) error {
	coordsJSON, err := marshalCoords(e)
	if err != nil {
		return err
	}
	ticketsJSON, err := json.Marshal(e.Tickets)
	if err != nil {
		return fmt.Errorf("failed to encode tickets: %w", err)
	}

	query := `
		INSERT INTO events (
			id, title, description, short_description, category, tags,
			starts_at, ends_at, timezone, duration_minutes, recurrence_rule, series_id,
			region_name, location_coords, teleport_url, external_url,
			cover_image_url, gallery_urls,
			creator_id, host_display_name, host_avatar_url,
			max_attendees, tickets, entry_fee, maturity_rating,
			dress_code, dress_code_details, status, featured, venue_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, NULLIF($12, ''),
			$13, $14, $15, $16,
			$17, $18,
			$19, $20, $21,
			$22, $23, $24, $25,
			$26, $27, $28, $29, NULLIF($30, ''),
			NOW(), NOW()
		)`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Summary, e.Category, pq.Array(e.Tags),
		e.StartTime, e.EndTime, e.Timezone, e.DurationMinutes, e.Recurrence, e.SeriesID,
		e.Location.RegionName, coordsJSON, e.Location.TeleportURL, e.ExternalURL,
		e.CoverImage, pq.Array(e.Gallery),
		e.OrganizerID, e.OrganizerName, e.OrganizerAvatar,
		nullableInt(e.Capacity), ticketsJSON, e.EntryFee, storeMaturity(e.Maturity),
		e.DressCode, e.DressCodeDetails, e.Status, e.Featured, e.VenueID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	r.logger.Info("event created",
		slog.String("event_id", e.ID),
		slog.String("creator_id", e.OrganizerID),
		slog.String("category", string(e.Category)))
	return nil
}

// Update persists editable fields of an existing event. Counters and
// reputation columns are maintained by their own paths and never written here.
func (r *PostgresRepository) Update(ctx context.Context, e *Event) error {
	coordsJSON, err := marshalCoords(e)
	if err != nil {
		return err
	}
	ticketsJSON, err := json.Marshal(e.Tickets)
	if err != nil {
		return fmt.Errorf("failed to encode tickets: %w", err)
	}

	query := `
		UPDATE events SET
			title = $2, description = $3, short_description = $4,
			category = $5, tags = $6,
			starts_at = $7, ends_at = $8, timezone = $9, duration_minutes = $10,
			recurrence_rule = $11,
			region_name = $12, location_coords = $13, teleport_url = $14,
			external_url = $15, cover_image_url = $16, gallery_urls = $17,
			max_attendees = $18, tickets = $19, entry_fee = $20,
			maturity_rating = $21, dress_code = $22, dress_code_details = $23,
			status = $24, venue_id = NULLIF($25, ''),
			updated_at = NOW()
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Summary,
		e.Category, pq.Array(e.Tags),
		e.StartTime, e.EndTime, e.Timezone, e.DurationMinutes,
		e.Recurrence,
		e.Location.RegionName, coordsJSON, e.Location.TeleportURL,
		e.ExternalURL, e.CoverImage, pq.Array(e.Gallery),
		nullableInt(e.Capacity), ticketsJSON, e.EntryFee,
		storeMaturity(e.Maturity), e.DressCode, e.DressCodeDetails,
		e.Status, e.VenueID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Cancel moves an event to cancelled, guarding the status machine in the same
// statement so concurrent transitions cannot race past it.
func (r *PostgresRepository) Cancel(ctx context.Context, id string) (*Event, error) {
	query := `
		UPDATE events SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'published', 'in_progress')`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel event: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Distinguish a missing event from a terminal one.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidTransition
	}

	r.logger.Info("event cancelled", slog.String("event_id", id))
	return r.GetByID(ctx, id)
}

// IncrementViewCount bumps the view counter without touching updated_at.
func (r *PostgresRepository) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

func marshalCoords(e *Event) (interface{}, error) {
	if e.Location.Coordinates == nil {
		return nil, nil
	}
	b, err := json.Marshal(e.Location.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode coordinates: %w", err)
	}
	return b, nil
}

func nullableInt(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}
