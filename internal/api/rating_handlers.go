package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/poqpoq/events-api/internal/event"
	"github.com/poqpoq/events-api/internal/middleware"
	"github.com/poqpoq/events-api/internal/rating"
	"github.com/poqpoq/events-api/internal/validate"
)

// RateEventRequest represents the request body for rating an event.
type RateEventRequest struct {
	Overall    int    `json:"overall"`
	VenueScore int    `json:"venueScore,omitempty"`
	HostScore  int    `json:"hostScore,omitempty"`
	ValueScore int    `json:"valueScore,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// RatingsResponse represents the response body for an event's rating list.
type RatingsResponse struct {
	EventID string           `json:"eventId"`
	Summary rating.Summary   `json:"summary"`
	Ratings []*rating.Rating `json:"ratings"`
}

// RatingHandlers holds dependencies for rating HTTP handlers.
type RatingHandlers struct {
	ratingRepo rating.Repository
	eventRepo  event.Repository
	logger     *slog.Logger
}

// NewRatingHandlers creates a new RatingHandlers instance.
func NewRatingHandlers(ratingRepo rating.Repository, eventRepo event.Repository, logger *slog.Logger) *RatingHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingHandlers{
		ratingRepo: ratingRepo,
		eventRepo:  eventRepo,
		logger:     logger,
	}
}

// Rate handles POST /api/events/{id}/rate. Re-rating replaces the caller's
// earlier submission.
func (h *RatingHandlers) Rate(w http.ResponseWriter, r *http.Request) {
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

	var req RateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
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

	comment, err := validate.RatingComment(req.Comment)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "comment must be at most 2000 characters")
		return
	}

	rec := &rating.Rating{
		EventID:    eventID,
		UserID:     userID,
		Overall:    req.Overall,
		VenueScore: req.VenueScore,
		HostScore:  req.HostScore,
		ValueScore: req.ValueScore,
		Comment:    comment,
		Visible:    true,
	}
	if err := h.ratingRepo.Upsert(r.Context(), rec); err != nil {
		if errors.Is(err, rating.ErrInvalidScore) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidRating)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidRating,
				"scores must be between 1 and 5")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to upsert rating", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to save rating")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// List handles GET /api/events/{id}/ratings. Only moderation-visible ratings
// are returned.
func (h *RatingHandlers) List(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if _, err := uuid.Parse(eventID); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidID, "Invalid event ID")
		return
	}

	ratings, err := h.ratingRepo.ListVisible(r.Context(), eventID, 50)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list ratings", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to list ratings")
		return
	}
	summary, err := h.ratingRepo.SummaryForEvent(r.Context(), eventID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to summarize ratings", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to list ratings")
		return
	}

	writeJSON(w, http.StatusOK, RatingsResponse{
		EventID: eventID,
		Summary: summary,
		Ratings: ratings,
	})
}
