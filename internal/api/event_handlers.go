// Package api provides HTTP handlers for the poqpoq Events API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poqpoq/events-api/internal/event"
	"github.com/poqpoq/events-api/internal/middleware"
	"github.com/poqpoq/events-api/internal/validate"
)

// defaultBrowseLimit caps the curated browse feeds.
const defaultBrowseLimit = 20

// CreateEventRequest represents the request body for creating an event.
type CreateEventRequest struct {
	Title            string                `json:"title"`
	Description      string                `json:"description,omitempty"`
	Summary          string                `json:"summary,omitempty"`
	Category         string                `json:"category"`
	Tags             []string              `json:"tags,omitempty"`
	StartTime        time.Time             `json:"startTime"`
	EndTime          time.Time             `json:"endTime"`
	Timezone         string                `json:"timezone,omitempty"`
	Recurrence       string                `json:"recurrence,omitempty"`
	SeriesID         string                `json:"seriesId,omitempty"`
	Location         event.VirtualLocation `json:"location"`
	ExternalURL      string                `json:"externalUrl,omitempty"`
	CoverImage       string                `json:"coverImage,omitempty"`
	Gallery          []string              `json:"gallery,omitempty"`
	Capacity         *int                  `json:"capacity,omitempty"`
	Tickets          []event.TicketTier    `json:"tickets,omitempty"`
	EntryFee         int                   `json:"entryFee,omitempty"`
	Maturity         string                `json:"maturity,omitempty"`
	DressCode        string                `json:"dressCode,omitempty"`
	DressCodeDetails string                `json:"dressCodeDetails,omitempty"`
	VenueID          string                `json:"venueId,omitempty"`
	Status           string                `json:"status,omitempty"`
}

// UpdateEventRequest represents the request body for updating an event.
// Pointer fields distinguish "not provided" from zero values so partial
// updates leave untouched fields alone.
type UpdateEventRequest struct {
	Title            *string                `json:"title,omitempty"`
	Description      *string                `json:"description,omitempty"`
	Summary          *string                `json:"summary,omitempty"`
	Category         *string                `json:"category,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	StartTime        *time.Time             `json:"startTime,omitempty"`
	EndTime          *time.Time             `json:"endTime,omitempty"`
	Timezone         *string                `json:"timezone,omitempty"`
	Location         *event.VirtualLocation `json:"location,omitempty"`
	ExternalURL      *string                `json:"externalUrl,omitempty"`
	CoverImage       *string                `json:"coverImage,omitempty"`
	Gallery          []string               `json:"gallery,omitempty"`
	Capacity         *int                   `json:"capacity,omitempty"`
	Tickets          []event.TicketTier     `json:"tickets,omitempty"`
	EntryFee         *int                   `json:"entryFee,omitempty"`
	Maturity         *string                `json:"maturity,omitempty"`
	DressCode        *string                `json:"dressCode,omitempty"`
	DressCodeDetails *string                `json:"dressCodeDetails,omitempty"`
	VenueID          *string                `json:"venueId,omitempty"`
	Status           *string                `json:"status,omitempty"`
}

// EventHandlers holds dependencies for event HTTP handlers.
type EventHandlers struct {
	repo   event.Repository
	logger *slog.Logger
}

// NewEventHandlers creates a new EventHandlers instance.
func NewEventHandlers(repo event.Repository, logger *slog.Logger) *EventHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandlers{repo: repo, logger: logger}
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// List handles GET /api/events. Filter parameters degrade silently: unknown
// categories or sort keys fall back to defaults rather than erroring, so a
// stale client can never break browsing.
func (h *EventHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := event.ParseListOptions(r.URL.Query())
	events, err := h.repo.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HappeningNow handles GET /api/events/happening-now.
func (h *EventHandlers) HappeningNow(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.HappeningNow(r.Context(), browseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list live events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Featured handles GET /api/events/featured.
func (h *EventHandlers) Featured(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.Featured(r.Context(), browseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list featured events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Upcoming handles GET /api/events/upcoming.
func (h *EventHandlers) Upcoming(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	events, err := h.repo.Upcoming(r.Context(), browseLimit(r), offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list upcoming events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Get handles GET /api/events/{id}. A successful fetch counts as a view.
func (h *EventHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidID, "Invalid event ID")
		return
	}

	e, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch event")
		return
	}

	// View counting is best effort; a failed bump never fails the read.
	if err := h.repo.IncrementViewCount(r.Context(), id); err != nil {
		h.logger.WarnContext(r.Context(), "failed to increment view count", "error", err, "event_id", id)
	}

	writeJSON(w, http.StatusOK, e)
}

// ByOrganizer handles GET /api/events/by-organizer/{id}.
func (h *EventHandlers) ByOrganizer(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.ListByOrganizer(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list organizer events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ByVenue handles GET /api/events/by-venue/{id}.
func (h *EventHandlers) ByVenue(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.ListByVenue(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list venue events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// BySeries handles GET /api/events/by-series/{id}.
func (h *EventHandlers) BySeries(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.ListBySeries(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list series events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Create handles POST /api/events.
func (h *EventHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "Authentication required")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" || req.Category == "" || req.StartTime.IsZero() || req.EndTime.IsZero() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMissingFields)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingFields,
			"title, category, startTime and endTime are required")
		return
	}
	title, err := validate.EventTitle(req.Title)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMissingFields)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingFields,
			"title must be between 3 and 120 characters")
		return
	}
	if req.ExternalURL != "" {
		if _, err := validate.ExternalURL(req.ExternalURL); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "externalUrl is not a valid public URL")
			return
		}
	}
	if !event.IsValidCategory(event.Category(req.Category)) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMissingFields)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingFields, "unknown category")
		return
	}
	if !req.EndTime.After(req.StartTime) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidTimeRange)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidTimeRange,
			"endTime must be after startTime")
		return
	}

	status := event.StatusDraft
	switch req.Status {
	case "", string(event.StatusDraft):
	case string(event.StatusPublished):
		status = event.StatusPublished
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidStatus)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidStatus,
			"new events may only be draft or published")
		return
	}

	now := time.Now().UTC()
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	maturity := event.Maturity(req.Maturity)
	if maturity != event.MaturityMature && maturity != event.MaturityAdult {
		maturity = event.MaturityGeneral
	}
	location := req.Location
	if location.Coordinates == nil && location.RegionName != "" {
		coords := event.DefaultCoordinates
		location.Coordinates = &coords
	}

	e := &event.Event{
		ID:               uuid.New().String(),
		Title:            title,
		Description:      req.Description,
		Summary:          req.Summary,
		Category:         event.Category(req.Category),
		Tags:             req.Tags,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Timezone:         timezone,
		DurationMinutes:  int(req.EndTime.Sub(req.StartTime) / time.Minute),
		Recurrence:       req.Recurrence,
		SeriesID:         req.SeriesID,
		Location:         location,
		ExternalURL:      req.ExternalURL,
		CoverImage:       req.CoverImage,
		Gallery:          req.Gallery,
		OrganizerID:      userID,
		Capacity:         req.Capacity,
		Tickets:          req.Tickets,
		EntryFee:         req.EntryFee,
		Maturity:         maturity,
		DressCode:        req.DressCode,
		DressCodeDetails: req.DressCodeDetails,
		Status:           status,
		VenueID:          req.VenueID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.repo.Create(r.Context(), e); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create event", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

// Update handles PUT /api/events/{id}. Only the organizer may update, and
// status changes must follow the lifecycle machine.
func (h *EventHandlers) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "Authentication required")
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidID, "Invalid event ID")
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	e, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch event")
		return
	}
	if e.OrganizerID != userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only the organizer may update this event")
		return
	}

	if err := applyUpdate(e, &req); err != nil {
		code := ErrCodeMissingFields
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, event.ErrInvalidTransition):
			code = ErrCodeInvalidStatus
		case errors.Is(err, errInvalidTimeRange):
			code = ErrCodeInvalidTimeRange
		}
		ctx := middleware.SetErrorCode(r.Context(), code)
		WriteError(w, ctx, status, code, err.Error())
		return
	}
	e.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), e); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to update event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to update event")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// Cancel handles DELETE /api/events/{id}. Events are never hard-deleted; the
// record stays for attendees with a cancelled status.
func (h *EventHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "Authentication required")
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidID, "Invalid event ID")
		return
	}

	e, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch event")
		return
	}
	if e.OrganizerID != userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only the organizer may cancel this event")
		return
	}

	cancelled, err := h.repo.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrInvalidTransition) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidStatus)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidStatus,
				"completed or cancelled events cannot be cancelled")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to cancel event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to cancel event")
		return
	}

	writeJSON(w, http.StatusOK, cancelled)
}

var errInvalidTimeRange = errors.New("endTime must be after startTime")

// applyUpdate folds the provided fields onto the event, enforcing the same
// validation rules as creation plus the status machine.
func applyUpdate(e *event.Event, req *UpdateEventRequest) error {
	if req.Title != nil {
		title, err := validate.EventTitle(*req.Title)
		if err != nil {
			return errors.New("title must be between 3 and 120 characters")
		}
		e.Title = title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Summary != nil {
		e.Summary = *req.Summary
	}
	if req.Category != nil {
		if !event.IsValidCategory(event.Category(*req.Category)) {
			return errors.New("unknown category")
		}
		e.Category = event.Category(*req.Category)
	}
	if req.Tags != nil {
		e.Tags = req.Tags
	}

	start, end := e.StartTime, e.EndTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if !end.After(start) {
		return errInvalidTimeRange
	}
	e.StartTime, e.EndTime = start, end
	e.DurationMinutes = int(end.Sub(start) / time.Minute)

	if req.Timezone != nil {
		e.Timezone = *req.Timezone
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.ExternalURL != nil {
		if *req.ExternalURL != "" {
			if _, err := validate.ExternalURL(*req.ExternalURL); err != nil {
				return errors.New("externalUrl is not a valid public URL")
			}
		}
		e.ExternalURL = *req.ExternalURL
	}
	if req.CoverImage != nil {
		e.CoverImage = *req.CoverImage
	}
	if req.Gallery != nil {
		e.Gallery = req.Gallery
	}
	if req.Capacity != nil {
		e.Capacity = req.Capacity
	}
	if req.Tickets != nil {
		e.Tickets = req.Tickets
	}
	if req.EntryFee != nil {
		e.EntryFee = *req.EntryFee
	}
	if req.Maturity != nil {
		m := event.Maturity(*req.Maturity)
		if m != event.MaturityGeneral && m != event.MaturityMature && m != event.MaturityAdult {
			return errors.New("maturity must be G, M or A")
		}
		e.Maturity = m
	}
	if req.DressCode != nil {
		e.DressCode = *req.DressCode
	}
	if req.DressCodeDetails != nil {
		e.DressCodeDetails = *req.DressCodeDetails
	}
	if req.VenueID != nil {
		e.VenueID = *req.VenueID
	}
	if req.Status != nil {
		next := event.Status(*req.Status)
		if !e.Status.CanTransitionTo(next) {
			return event.ErrInvalidTransition
		}
		e.Status = next
	}
	return nil
}

func browseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultBrowseLimit
	}
	if limit > 50 {
		return 50
	}
	return limit
}
