package rating

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
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

// Upsert creates or replaces the user's rating for the event. New ratings are
// visible by default; moderation flips the flag out of band.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *Rating) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO event_ratings (
			event_id, user_id, overall, venue_score, host_score, value_score,
			comment, visible, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		ON CONFLICT (event_id, user_id)
		DO UPDATE SET
			overall = EXCLUDED.overall,
			venue_score = EXCLUDED.venue_score,
			host_score = EXCLUDED.host_score,
			value_score = EXCLUDED.value_score,
			comment = EXCLUDED.comment,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		rec.EventID, rec.UserID, rec.Overall,
		rec.VenueScore, rec.HostScore, rec.ValueScore, rec.Comment)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

// ListVisible returns an event's visible ratings, newest first, capped at
// limit.
func (r *PostgresRepository) ListVisible(ctx context.Context, eventID string, limit int) ([]*Rating, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, user_id, overall, venue_score, host_score, value_score,
		       comment, visible, created_at, updated_at
		FROM event_ratings
		WHERE event_id = $1 AND visible = TRUE
		ORDER BY created_at DESC
		LIMIT $2`, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	ratings := []*Rating{}
	for rows.Next() {
		var (
			rec     Rating
			comment sql.NullString
		)
		err := rows.Scan(&rec.EventID, &rec.UserID, &rec.Overall,
			&rec.VenueScore, &rec.HostScore, &rec.ValueScore,
			&comment, &rec.Visible, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		rec.Comment = comment.String
		ratings = append(ratings, &rec)
	}
	return ratings, rows.Err()
}

// SummaryForEvent returns the count and mean of visible overall scores.
func (r *PostgresRepository) SummaryForEvent(ctx context.Context, eventID string) (Summary, error) {
	var s Summary
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(overall), 0)
		FROM event_ratings
		WHERE event_id = $1 AND visible = TRUE`, eventID,
	).Scan(&s.Count, &s.Average)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarize ratings: %w", err)
	}
	return s, nil
}
