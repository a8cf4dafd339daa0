// Package api provides HTTP handlers for the poqpoq Events API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/poqpoq/events-api/internal/middleware"
)

// Common error codes used throughout the API.
const (
	// ErrCodeServer indicates an internal server error.
	ErrCodeServer = "server_error"

	// ErrCodeInvalidID indicates a malformed resource identifier.
	ErrCodeInvalidID = "invalid_id"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeForbidden indicates the caller does not own the resource.
	ErrCodeForbidden = "forbidden"

	// ErrCodeAuthRequired indicates a missing Authorization header.
	ErrCodeAuthRequired = "auth_required"

	// ErrCodeInvalidToken indicates an expired or unverifiable token.
	ErrCodeInvalidToken = "invalid_token"

	// ErrCodeMissingFields indicates required request fields are absent.
	ErrCodeMissingFields = "missing_fields"

	// ErrCodeInvalidStatus indicates a disallowed status transition.
	ErrCodeInvalidStatus = "invalid_status"

	// ErrCodeInvalidRating indicates a rating score outside 1..5.
	ErrCodeInvalidRating = "invalid_rating"

	// ErrCodeInvalidTimeRange indicates event start time is not before end time.
	ErrCodeInvalidTimeRange = "invalid_time_range"

	// ErrCodeBadRequest indicates a malformed request body.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeRateLimited indicates rate limit exceeded.
	ErrCodeRateLimited = "rate_limited"
)

// ErrorResponse is the standard error body. The error field carries the
// machine-readable code; message is advisory and may change.
//
// Format: {"error": "error_code", "message": "Error description"}
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError writes a standardized JSON error response.
//
// The error code is logged by the logging middleware for 4xx and 5xx
// responses when the handler calls middleware.SetErrorCode on the context and
// passes the updated context here.
//
// Example:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
//	api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "Event not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	// Update the context in the response writer if supported (for logging middleware)
	middleware.UpdateResponseContext(w, ctx)

	data, err := json.Marshal(ErrorResponse{Error: code, Message: message})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// StatusCodeMapping returns the recommended HTTP status code for common error
// codes.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeInvalidID, ErrCodeMissingFields, ErrCodeInvalidStatus,
		ErrCodeInvalidRating, ErrCodeInvalidTimeRange, ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeAuthRequired, ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
