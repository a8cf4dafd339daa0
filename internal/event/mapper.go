package event

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// eventColumns is the canonical projection shared by every event SELECT so
// scanEvent can scan rows positionally.
const eventColumns = `e.id, e.title, e.description, e.short_description, e.category, e.tags,
	e.starts_at, e.ends_at, e.timezone, e.duration_minutes, e.recurrence_rule, e.series_id,
	e.region_name, e.location_coords, e.teleport_url, e.external_url,
	e.cover_image_url, e.gallery_urls,
	e.creator_id, e.host_display_name, e.host_avatar_url,
	e.max_attendees, e.rsvp_count, e.interested_count,
	e.tickets, e.entry_fee, e.maturity_rating, e.dress_code, e.dress_code_details,
	e.status, e.featured, e.traffic_score, e.view_count, e.bookmark_count,
	e.host_reputation_score, e.host_events_completed,
	e.created_at, e.updated_at, e.venue_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent maps one row of eventColumns onto the client-facing Event shape.
// Nullable columns degrade to zero values, jsonb payloads that fail to decode
// are dropped rather than failing the whole row, and the store maturity enum
// is translated to the client one.
func scanEvent(row rowScanner) (*Event, error) {
	var (
		e               Event
		description     sql.NullString
		summary         sql.NullString
		timezone        sql.NullString
		duration        sql.NullInt64
		recurrence      sql.NullString
		seriesID        sql.NullString
		regionName      sql.NullString
		coordsJSON      []byte
		teleportURL     sql.NullString
		externalURL     sql.NullString
		coverImage      sql.NullString
		hostName        sql.NullString
		hostAvatar      sql.NullString
		maxAttendees    sql.NullInt64
		ticketsJSON     []byte
		entryFee        sql.NullInt64
		maturity        sql.NullString
		dressCode       sql.NullString
		dressCodeDetail sql.NullString
		trafficScore    sql.NullFloat64
		viewCount       sql.NullInt64
		bookmarkCount   sql.NullInt64
		hostReputation  sql.NullFloat64
		hostCompleted   sql.NullInt64
		updatedAt       sql.NullTime
		venueID         sql.NullString
	)

	err := row.Scan(
		&e.ID, &e.Title, &description, &summary, &e.Category, pq.Array(&e.Tags),
		&e.StartTime, &e.EndTime, &timezone, &duration, &recurrence, &seriesID,
		&regionName, &coordsJSON, &teleportURL, &externalURL,
		&coverImage, pq.Array(&e.Gallery),
		&e.OrganizerID, &hostName, &hostAvatar,
		&maxAttendees, &e.AttendeeCount, &e.InterestedCount,
		&ticketsJSON, &entryFee, &maturity, &dressCode, &dressCodeDetail,
		&e.Status, &e.Featured, &trafficScore, &viewCount, &bookmarkCount,
		&hostReputation, &hostCompleted,
		&e.CreatedAt, &updatedAt, &venueID,
	)
	if err != nil {
		return nil, err
	}

	e.Description = description.String
	e.Summary = summary.String
	e.Timezone = timezone.String
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	if duration.Valid {
		e.DurationMinutes = int(duration.Int64)
	} else {
		e.DurationMinutes = int(e.EndTime.Sub(e.StartTime) / time.Minute)
	}
	e.Recurrence = recurrence.String
	e.SeriesID = seriesID.String

	e.Location.RegionName = regionName.String
	if len(coordsJSON) > 0 {
		var coords Coordinates
		if json.Unmarshal(coordsJSON, &coords) == nil {
			e.Location.Coordinates = &coords
		}
	}
	e.Location.TeleportURL = teleportURL.String

	e.ExternalURL = externalURL.String
	e.CoverImage = coverImage.String
	e.OrganizerName = hostName.String
	e.OrganizerAvatar = hostAvatar.String

	if maxAttendees.Valid {
		cap := int(maxAttendees.Int64)
		e.Capacity = &cap
	}
	if len(ticketsJSON) > 0 {
		var tiers []TicketTier
		if json.Unmarshal(ticketsJSON, &tiers) == nil {
			e.Tickets = tiers
		}
	}
	e.EntryFee = int(entryFee.Int64)
	e.Maturity = MaturityFromStore(maturity.String)
	e.DressCode = dressCode.String
	e.DressCodeDetails = dressCodeDetail.String

	e.TrafficScore = trafficScore.Float64
	e.ViewCount = int(viewCount.Int64)
	e.BookmarkCount = int(bookmarkCount.Int64)
	e.HostReputationScore = hostReputation.Float64
	e.HostEventsCompleted = int(hostCompleted.Int64)

	if updatedAt.Valid {
		e.UpdatedAt = updatedAt.Time
	} else {
		e.UpdatedAt = e.CreatedAt
	}
	e.VenueID = venueID.String

	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.Gallery == nil {
		e.Gallery = []string{}
	}

	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	defer rows.Close()
	events := []*Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
