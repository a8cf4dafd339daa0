package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation ID between the web client, this
// API, and the platform services it calls.
const RequestIDHeader = "X-Request-ID"

// Inbound IDs longer than this are treated as garbage and replaced.
const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestID tags every request with a correlation ID. A usable inbound
// X-Request-ID is kept so traces from the gateway line up with our logs;
// anything missing, oversized, or containing control characters gets a
// fresh UUID instead. The ID is echoed on the response and stored in the
// request context for the logging middleware and error envelope.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !usableRequestID(id) {
			id = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the correlation ID stored by RequestID, or "" when
// the middleware did not run.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// usableRequestID rejects IDs that would corrupt log lines: empty,
// oversized, or containing bytes outside printable ASCII.
func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
