package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/poqpoq/events-api/internal/event"
	"github.com/poqpoq/events-api/internal/middleware"
	"github.com/poqpoq/events-api/internal/validate"
	"github.com/poqpoq/events-api/internal/venue"
)

// CreateVenueRequest represents the request body for creating a venue.
type CreateVenueRequest struct {
	Name     string                `json:"name"`
	Location event.VirtualLocation `json:"location"`
	Capacity int                   `json:"capacity,omitempty"`
	Category string                `json:"category,omitempty"`
}

// VenueHandlers holds dependencies for venue HTTP handlers.
type VenueHandlers struct {
	repo   venue.Repository
	logger *slog.Logger
}

// NewVenueHandlers creates a new VenueHandlers instance.
func NewVenueHandlers(repo venue.Repository, logger *slog.Logger) *VenueHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &VenueHandlers{repo: repo, logger: logger}
}

// List handles GET /api/venues.
func (h *VenueHandlers) List(w http.ResponseWriter, r *http.Request) {
	venues, err := h.repo.List(r.Context(), browseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list venues", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch venues")
		return
	}
	writeJSON(w, http.StatusOK, venues)
}

// Get handles GET /api/venues/{id}.
func (h *VenueHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidID, "Invalid venue ID")
		return
	}

	v, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, venue.ErrVenueNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Venue not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get venue", "error", err, "venue_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to fetch venue")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Create handles POST /api/venues.
func (h *VenueHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "Authentication required")
		return
	}

	var req CreateVenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMissingFields)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingFields, "name is required")
		return
	}
	name, err := validate.VenueName(req.Name)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "name must be 1-100 characters of letters, numbers and basic punctuation")
		return
	}

	location := req.Location
	if location.Coordinates == nil && location.RegionName != "" {
		coords := event.DefaultCoordinates
		location.Coordinates = &coords
	}

	v := &venue.Venue{
		ID:       uuid.New().String(),
		Name:     name,
		Location: location,
		Capacity: req.Capacity,
		Category: req.Category,
		Active:   true,
	}
	if err := h.repo.Create(r.Context(), v); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create venue", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeServer)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeServer, "Failed to create venue")
		return
	}

	writeJSON(w, http.StatusCreated, v)
}
