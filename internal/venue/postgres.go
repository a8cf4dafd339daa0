package venue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/poqpoq/events-api/internal/event"
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

const venueColumns = `id, name, region_name, location_coords, teleport_url,
	capacity, rating, category, active, created_at, updated_at`

// List returns active venues, best rated first, ties broken by name.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*Venue, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+venueColumns+` FROM venues
		WHERE active = TRUE
		ORDER BY rating DESC, LOWER(name) ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	defer rows.Close()

	venues := []*Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// GetByID retrieves a venue by its ID, active or not.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Venue, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+venueColumns+" FROM venues WHERE id = $1", id)
	v, err := scanVenue(row)
	if err == sql.ErrNoRows {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return v, nil
}

// Create stores a new venue.
func (r *PostgresRepository) Create(ctx context.Context, v *Venue) error {
	var coordsJSON interface{}
	if v.Location.Coordinates != nil {
		b, err := json.Marshal(v.Location.Coordinates)
		if err != nil {
			return fmt.Errorf("failed to encode coordinates: %w", err)
		}
		coordsJSON = b
	}

	query := `
		INSERT INTO venues (
			id, name, region_name, location_coords, teleport_url,
			capacity, rating, category, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.Name, v.Location.RegionName, coordsJSON, v.Location.TeleportURL,
		v.Capacity, v.Rating, v.Category)
	if err != nil {
		return fmt.Errorf("failed to insert venue: %w", err)
	}

	r.logger.Info("venue created",
		slog.String("venue_id", v.ID),
		slog.String("name", v.Name))
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVenue(row rowScanner) (*Venue, error) {
	var (
		v           Venue
		regionName  sql.NullString
		coordsJSON  []byte
		teleportURL sql.NullString
		capacity    sql.NullInt64
		rating      sql.NullFloat64
		category    sql.NullString
	)
	err := row.Scan(&v.ID, &v.Name, &regionName, &coordsJSON, &teleportURL,
		&capacity, &rating, &category, &v.Active, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}

	v.Location.RegionName = regionName.String
	if len(coordsJSON) > 0 {
		var coords event.Coordinates
		if json.Unmarshal(coordsJSON, &coords) == nil {
			v.Location.Coordinates = &coords
		}
	}
	v.Location.TeleportURL = teleportURL.String
	v.Capacity = int(capacity.Int64)
	v.Rating = rating.Float64
	v.Category = category.String
	return &v, nil
}
