// Package auth verifies platform-issued JWTs. The events service never mints
// tokens; the poqpoq identity service signs them with a shared HS256 secret
// and this package only validates and extracts the caller's user ID.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/poqpoq/events-api/internal/middleware"
)

// Default leeway for token validation.
const DefaultLeeway = 30 * time.Second

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when the token has expired.
var ErrExpiredToken = errors.New("token has expired")

// ErrNoUserID is returned when a valid token carries no user identity claim.
var ErrNoUserID = errors.New("token has no user identity")

// Claims represents the platform's JWT claims. Different platform components
// historically wrote the user ID under different names, so all three are
// accepted.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id,omitempty"`
	UserIDCamel string `json:"userId,omitempty"`
}

// Identity returns the user ID, preferring user_id, then userId, then sub.
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	if c.UserIDCamel != "" {
		return c.UserIDCamel
	}
	return c.Subject
}

// Verifier validates platform-issued tokens.
// Supports dual-key rotation: tokens are validated against currentSecret
// first, then previousSecret if one is configured.
type Verifier struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewVerifier creates a Verifier with a single shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		currentSecret: []byte(secret),
		leeway:        DefaultLeeway,
	}
}

// NewVerifierWithRotation creates a Verifier with dual-key support for
// zero-downtime secret rotation. Set previousSecret to empty string if no
// rotation is in progress.
func NewVerifierWithRotation(currentSecret, previousSecret string) *Verifier {
	v := &Verifier{
		currentSecret: []byte(currentSecret),
		leeway:        DefaultLeeway,
	}
	if previousSecret != "" {
		v.previousSecret = []byte(previousSecret)
	}
	return v
}

// NewVerifierWithLeeway creates a Verifier with custom clock-skew leeway.
func NewVerifierWithLeeway(secret string, leeway time.Duration) *Verifier {
	return &Verifier{
		currentSecret: []byte(secret),
		leeway:        leeway,
	}
}

// Verify parses and validates a token, returning the claims if valid.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims, err := v.parseWith(tokenString, v.currentSecret)
	if err == nil {
		return claims, nil
	}

	if v.previousSecret != nil {
		if claims, prevErr := v.parseWith(tokenString, v.previousSecret); prevErr == nil {
			return claims, nil
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

func (v *Verifier) parseWith(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserIDFromHeader validates the Authorization header and returns the caller's
// user ID. An absent header is not an error; it returns an empty ID.
func (v *Verifier) UserIDFromHeader(header string) (string, error) {
	if header == "" {
		return "", nil
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" || raw == header {
		return "", ErrInvalidToken
	}
	claims, err := v.Verify(raw)
	if err != nil {
		return "", err
	}
	id := claims.Identity()
	if id == "" {
		return "", ErrNoUserID
	}
	return id, nil
}

// Optional is middleware that attaches the user ID to the request context
// when a valid token is presented, and passes anonymous requests through.
// A malformed or expired token is rejected even on optional routes.
func (v *Verifier) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := v.UserIDFromHeader(header)
		if err != nil {
			writeAuthError(w, r, "invalid_token", "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.SetUserID(r.Context(), userID)))
	})
}

// Require is middleware that rejects requests without a valid token.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeAuthError(w, r, "auth_required", "Authentication required")
			return
		}
		userID, err := v.UserIDFromHeader(header)
		if err != nil {
			writeAuthError(w, r, "invalid_token", "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.SetUserID(r.Context(), userID)))
	})
}

// writeAuthError emits the flat error body inline to avoid importing the api
// package from middleware-adjacent code.
func writeAuthError(w http.ResponseWriter, r *http.Request, code, message string) {
	middleware.UpdateResponseContext(w, middleware.SetErrorCode(r.Context(), code))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + code + `","message":"` + message + `"}`))
}
