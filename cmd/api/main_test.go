// Integration tests that assemble the server the way main does, with
// in-memory repositories standing in for Postgres.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poqpoq/events-api/internal/api"
	"github.com/poqpoq/events-api/internal/auth"
	"github.com/poqpoq/events-api/internal/event"
	"github.com/poqpoq/events-api/internal/middleware"
	"github.com/poqpoq/events-api/internal/rating"
	"github.com/poqpoq/events-api/internal/rsvp"
	"github.com/poqpoq/events-api/internal/venue"
)

const testEventID = "550e8400-e29b-41d4-a716-446655440000"

// buildServerHandler wires the routes and middleware chain the same way main
// does, minus Postgres, Redis, tracing, and pprof.
func buildServerHandler(t *testing.T, eventRepo event.Repository) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := auth.NewVerifierWithRotation("test-secret-at-least-32-bytes-long", "")

	limitStore := middleware.NewInMemoryRateLimitStore()
	limit := middleware.RateLimitConfig{RequestsPerWindow: 1000, WindowDuration: time.Minute}
	searchLimiter := middleware.RateLimiter(limitStore, limit, middleware.UserKeyFunc())

	metrics := middleware.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eventHandlers := api.NewEventHandlers(eventRepo, logger)
	venueHandlers := api.NewVenueHandlers(venue.NewInMemoryRepository(), logger)
	rsvpHandlers := api.NewRSVPHandlers(rsvp.NewInMemoryRepository(nil), eventRepo, logger)
	ratingHandlers := api.NewRatingHandlers(rating.NewInMemoryRepository(nil), eventRepo, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{})

	mux := http.NewServeMux()
	mux.Handle("GET /api/events", searchLimiter(http.HandlerFunc(eventHandlers.List)))
	mux.HandleFunc("GET /api/events/happening-now", eventHandlers.HappeningNow)
	mux.HandleFunc("GET /api/events/featured", eventHandlers.Featured)
	mux.HandleFunc("GET /api/events/upcoming", eventHandlers.Upcoming)
	mux.HandleFunc("GET /api/events/{id}", eventHandlers.Get)
	mux.Handle("POST /api/events", verifier.Require(http.HandlerFunc(eventHandlers.Create)))
	mux.Handle("POST /api/events/{id}/rsvp", verifier.Require(http.HandlerFunc(rsvpHandlers.CreateOrUpdate)))
	mux.HandleFunc("GET /api/events/{id}/attendees", rsvpHandlers.Attendees)
	mux.HandleFunc("GET /api/events/{id}/ratings", ratingHandlers.List)
	mux.HandleFunc("GET /api/venues", venueHandlers.List)
	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			errCtx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, errCtx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"service":"poqpoq-events-api","version":"1.0.0"}`))
	})

	var handler http.Handler = mux
	handler = middleware.RateLimiter(limitStore, limit, middleware.IPKeyFunc())(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{"https://events.poqpoq.world"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}

func seededEventRepo(t *testing.T) *event.InMemoryRepository {
	t.Helper()
	repo := event.NewInMemoryRepository(nil)
	now := time.Now().UTC()
	err := repo.Create(context.Background(), &event.Event{
		ID:          testEventID,
		Title:       "Friday Night Live Set",
		Description: "Weekly live music session at the harbor stage",
		Category:    event.CategoryPerformance,
		StartTime:   now.Add(24 * time.Hour),
		EndTime:     now.Add(26 * time.Hour),
		Timezone:    "UTC",
		Status:      event.StatusPublished,
		OrganizerID: "avatar-organizer-1",
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return repo
}

func TestServerRoutes(t *testing.T) {
	handler := buildServerHandler(t, seededEventRepo(t))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantInBody string
	}{
		{"service banner", http.MethodGet, "/", http.StatusOK, `"service":"poqpoq-events-api"`},
		{"liveness probe", http.MethodGet, "/health", http.StatusOK, `"status":"healthy"`},
		{"readiness without dependencies", http.MethodGet, "/ready", http.StatusOK, `"status":"healthy"`},
		{"browse events", http.MethodGet, "/api/events", http.StatusOK, "Friday Night Live Set"},
		{"event detail", http.MethodGet, "/api/events/" + testEventID, http.StatusOK, "Friday Night Live Set"},
		{"event detail bad id", http.MethodGet, "/api/events/not-a-uuid", http.StatusBadRequest, `"error":"invalid_id"`},
		{"venues list", http.MethodGet, "/api/venues", http.StatusOK, "["},
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound, `"error":"not_found"`},
		{"create without token", http.MethodPost, "/api/events", http.StatusUnauthorized, `"error":"auth_required"`},
		{"rsvp without token", http.MethodPost, "/api/events/" + testEventID + "/rsvp", http.StatusUnauthorized, `"error":"auth_required"`},
		{"metrics endpoint", http.MethodGet, "/metrics", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.RemoteAddr = "192.0.2.10:40000"
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantInBody != "" && !strings.Contains(rr.Body.String(), tt.wantInBody) {
				t.Errorf("body missing %q: %s", tt.wantInBody, rr.Body.String())
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("response missing X-Request-ID")
			}
		})
	}
}

func TestServerViewCountOnDetail(t *testing.T) {
	repo := seededEventRepo(t)
	handler := buildServerHandler(t, repo)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/events/"+testEventID, nil)
		req.RemoteAddr = "192.0.2.10:40000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("detail fetch %d: status = %d", i+1, rr.Code)
		}
	}

	e, err := repo.GetByID(context.Background(), testEventID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if e.ViewCount != 3 {
		t.Errorf("view count = %d, want 3", e.ViewCount)
	}
}

// slowEventRepo stalls List until released so a request can be held in
// flight across a shutdown.
type slowEventRepo struct {
	event.Repository
	started chan struct{}
	release chan struct{}
}

func (r *slowEventRepo) List(ctx context.Context, opts event.ListOptions) ([]*event.Event, error) {
	close(r.started)
	<-r.release
	return r.Repository.List(ctx, opts)
}

func TestGracefulShutdownWaitsForInFlightRequest(t *testing.T) {
	repo := &slowEventRepo{
		Repository: seededEventRepo(t),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	handler := buildServerHandler(t, repo)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	serveDone := make(chan struct{})
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.Errorf("Serve: %v", err)
		}
		close(serveDone)
	}()

	type result struct {
		status int
		body   []byte
		err    error
	}
	requestDone := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/events")
		if err != nil {
			requestDone <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		requestDone <- result{status: resp.StatusCode, body: body}
	}()

	select {
	case <-repo.started:
	case <-time.After(2 * time.Second):
		t.Fatal("browse request never reached the repository")
	}

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownDone <- server.Shutdown(ctx)
	}()

	// Shutdown must not cut the held request off.
	time.Sleep(50 * time.Millisecond)
	close(repo.release)

	select {
	case res := <-requestDone:
		if res.err != nil {
			t.Fatalf("in-flight request failed: %v", res.err)
		}
		if res.status != http.StatusOK {
			t.Fatalf("in-flight request status = %d, want 200", res.status)
		}
		var events []json.RawMessage
		if err := json.Unmarshal(res.body, &events); err != nil {
			t.Fatalf("in-flight response not a JSON array: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("in-flight response events = %d, want 1", len(events))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request did not complete")
	}

	select {
	case err := <-shutdownDone:
		if err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	<-serveDone
}

func TestShutdownSignalDelivery(t *testing.T) {
	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGTERM} {
		t.Run(sig.String(), func(t *testing.T) {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			go func() {
				time.Sleep(50 * time.Millisecond)
				syscall.Kill(syscall.Getpid(), sig)
			}()

			select {
			case got := <-quit:
				if got != sig {
					t.Errorf("received %v, want %v", got, sig)
				}
			case <-time.After(2 * time.Second):
				t.Errorf("%v not delivered", sig)
			}
		})
	}
}
