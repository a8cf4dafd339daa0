package rsvp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// PostgresRepository implements Repository using PostgreSQL. Every write runs
// in a transaction that also refreshes the parent event's counters, so the
// denormalized rsvp_count and interested_count columns never drift from the
// rows.
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

// Upsert creates or replaces the user's RSVP for the event.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *RSVP) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.logger.Warn("failed to rollback rsvp transaction",
				slog.String("error", err.Error()))
		}
	}()

	query := `
		INSERT INTO event_rsvps (event_id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (event_id, user_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`
	if _, err := tx.ExecContext(ctx, query, rec.EventID, rec.UserID, rec.Status); err != nil {
		return fmt.Errorf("failed to upsert rsvp: %w", err)
	}

	if err := refreshCounts(ctx, tx, rec.EventID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rsvp: %w", err)
	}
	return nil
}

// Delete removes the user's RSVP for the event.
func (r *PostgresRepository) Delete(ctx context.Context, eventID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.logger.Warn("failed to rollback rsvp transaction",
				slog.String("error", err.Error()))
		}
	}()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM event_rsvps WHERE event_id = $1 AND user_id = $2`,
		eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rsvp: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrRSVPNotFound
	}

	if err := refreshCounts(ctx, tx, eventID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rsvp delete: %w", err)
	}
	return nil
}

// GetByEventAndUser retrieves one RSVP, or ErrRSVPNotFound.
func (r *PostgresRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*RSVP, error) {
	var rec RSVP
	err := r.db.QueryRowContext(ctx,
		`SELECT event_id, user_id, status, created_at, updated_at
		 FROM event_rsvps WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	).Scan(&rec.EventID, &rec.UserID, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRSVPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rsvp: %w", err)
	}
	return &rec, nil
}

// CountsForEvent returns the per-status attendance counts.
func (r *PostgresRepository) CountsForEvent(ctx context.Context, eventID string) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'going'),
			COUNT(*) FILTER (WHERE status = 'interested'),
			COUNT(*) FILTER (WHERE status = 'maybe')
		FROM event_rsvps WHERE event_id = $1`, eventID,
	).Scan(&c.Going, &c.Interested, &c.Maybe)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count rsvps: %w", err)
	}
	return c, nil
}

// Attendees lists user IDs with a going or interested RSVP for the event,
// oldest first, capped at limit.
func (r *PostgresRepository) Attendees(ctx context.Context, eventID string, limit int) ([]string, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM event_rsvps
		 WHERE event_id = $1 AND status IN ('going', 'interested')
		 ORDER BY created_at ASC
		 LIMIT $2`, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// refreshCounts recomputes the event's denormalized attendance counters from
// the RSVP rows inside the caller's transaction.
func refreshCounts(ctx context.Context, tx *sql.Tx, eventID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE events SET
			rsvp_count = (SELECT COUNT(*) FROM event_rsvps
				WHERE event_id = $1 AND status = 'going'),
			interested_count = (SELECT COUNT(*) FROM event_rsvps
				WHERE event_id = $1 AND status = 'interested')
		WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to refresh rsvp counts: %w", err)
	}
	return nil
}
