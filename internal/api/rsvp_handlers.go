package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poqpoq/events-api/internal/event"
	"github.com/poqpoq/events-api/internal/middleware"
	"github.com/poqpoq/events-api/internal/rsvp"
)

// RSVPRequest represents the request body for creating/updating an RSVP.
type RSVPRequest struct {
	Status string `json:"status"` // going, interested, maybe or not_going
}

// RSVPResponse represents the response body for RSVP operations.
// Note: UserID is intentionally omitted to protect user privacy.
type RSVPResponse struct {
	EventID   string    `json:"eventId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AttendeesResponse represents the response body for the attendee list.
type AttendeesResponse struct {
	EventID   string      `json:"eventId"`
	Attendees []string    `json:"attendees"`
	Counts    rsvp.Counts `json:"counts"`
}

// RSVPHandlers holds dependencies for RSVP HTTP handlers.
type RSVPHandlers struct {
	rsvpRepo  rsvp.Repository
	eventRepo event.Repository
	logger    *slog.Logger
}

// NewRSVPHandlers creates a new RSVPHandlers instance.
func NewRSVPHandlers(rsvpRepo rsvp.Repository, eventRepo event.Repository, logger *slog.Logger) *RSVPHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RSVPHandlers{
		rsvpRepo:  rsvpRepo,
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// getOpenEvent loads the event and rejects RSVPs against events that already
// ended or were cancelled. RSVPs stay open while an event is in progress so
// latecomers can still declare themselves.
func (h *RSVPHandlers) getOpenEvent(w http.ResponseWriter, r *http.Request, eventID string) *event.Event {
	e, err := h.eventRepo.GetByID(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return nil
		}
		h.logger.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to retrieve event")
		return nil
	}
	if e.Status == event.StatusCompleted || e.Status == event.StatusCancelled {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidStatus)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidStatus,
			"Cannot RSVP to a completed or cancelled event")
		return nil
	}
	return e
}

// CreateOrUpdate handles POST /api/events/{id}/rsvp.
func (h *RSVPHandlers) CreateOrUpdate(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if _, err := uuid.Parse(eventID); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidID, "Invalid event ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "Authentication required")
		return
	}

	var req RSVPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	status := strings.TrimSpace(req.Status)
	if !rsvp.IsValidStatus(status) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest,
			"status must be going, interested, maybe or not_going")
		return
	}

	if h.getOpenEvent(w, r, eventID) == nil {
		return
	}

	rec := &rsvp.RSVP{EventID: eventID, UserID: userID, Status: status}
	if err := h.rsvpRepo.Upsert(r.Context(), rec); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to upsert rsvp", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to save RSVP")
		return
	}

	stored, err := h.rsvpRepo.GetByEventAndUser(r.Context(), eventID, userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to retrieve rsvp", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to retrieve RSVP")
		return
	}

	writeJSON(w, http.StatusOK, RSVPResponse{
		EventID:   stored.EventID,
		Status:    stored.Status,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	})
}

// Delete handles DELETE /api/events/{id}/rsvp.
func (h *RSVPHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if _, err := uuid.Parse(eventID); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidID, "Invalid event ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "Authentication required")
		return
	}

	if h.getOpenEvent(w, r, eventID) == nil {
		return
	}

	if err := h.rsvpRepo.Delete(r.Context(), eventID, userID); err != nil {
		if errors.Is(err, rsvp.ErrRSVPNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "RSVP not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to delete rsvp", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to delete RSVP")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Attendees handles GET /api/events/{id}/attendees.
func (h *RSVPHandlers) Attendees(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if _, err := uuid.Parse(eventID); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidID, "Invalid event ID")
		return
	}

	if _, err := h.eventRepo.GetByID(r.Context(), eventID); err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to retrieve event")
		return
	}

	attendees, err := h.rsvpRepo.Attendees(r.Context(), eventID, 100)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list attendees", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to list attendees")
		return
	}
	counts, err := h.rsvpRepo.CountsForEvent(r.Context(), eventID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to count rsvps", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to list attendees")
		return
	}

	writeJSON(w, http.StatusOK, AttendeesResponse{
		EventID:   eventID,
		Attendees: attendees,
		Counts:    counts,
	})
}
