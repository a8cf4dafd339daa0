// Package main is the entry point for the events API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/poqpoq/events-api/internal/api"
	"github.com/poqpoq/events-api/internal/auth"
	"github.com/poqpoq/events-api/internal/config"
	"github.com/poqpoq/events-api/internal/db"
	"github.com/poqpoq/events-api/internal/event"
	"github.com/poqpoq/events-api/internal/health"
	"github.com/poqpoq/events-api/internal/middleware"
	"github.com/poqpoq/events-api/internal/rating"
	"github.com/poqpoq/events-api/internal/rsvp"
	"github.com/poqpoq/events-api/internal/tracing"
	"github.com/poqpoq/events-api/internal/venue"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("poqpoq Events API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx := context.Background()

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRate:  cfg.TracingSampleRate,
		Insecure:    cfg.Env == "development",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
	}()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Repositories
	eventRepo := event.NewPostgresRepository(conn, logger)
	venueRepo := venue.NewPostgresRepository(conn, logger)
	rsvpRepo := rsvp.NewPostgresRepository(conn, logger)
	ratingRepo := rating.NewPostgresRepository(conn, logger)

	// Token verification is delegated to the platform identity service; this
	// API only holds the shared verification secret.
	verifier := auth.NewVerifierWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)

	// Rate limit store: Redis when configured so limits hold across
	// instances, in-memory otherwise.
	var limitStore middleware.RateLimitStore = middleware.NewInMemoryRateLimitStore()
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limitStore = middleware.NewRedisRateLimitAdapter(middleware.NewRedisRateLimitStore(redisClient))
		defer redisClient.Close()
	}
	globalLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.GlobalRateLimit,
		WindowDuration:    cfg.RateLimitWindow,
	}
	searchLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.SearchRateLimit,
		WindowDuration:    cfg.RateLimitWindow,
	}
	searchLimiter := middleware.RateLimiter(limitStore, searchLimit, middleware.UserKeyFunc())

	// Metrics
	metrics := middleware.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Handlers
	eventHandlers := api.NewEventHandlers(eventRepo, logger)
	venueHandlers := api.NewVenueHandlers(venueRepo, logger)
	rsvpHandlers := api.NewRSVPHandlers(rsvpRepo, eventRepo, logger)
	ratingHandlers := api.NewRatingHandlers(ratingRepo, eventRepo, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    health.NewDBChecker(conn),
		RedisChecker: redisChecker(redisClient),
	})

	mux := http.NewServeMux()

	// Browse endpoints. The main listing carries the text-search path, so it
	// gets the tighter search rate limit.
	mux.Handle("GET /api/events", searchLimiter(http.HandlerFunc(eventHandlers.List)))
	mux.HandleFunc("GET /api/events/happening-now", eventHandlers.HappeningNow)
	mux.HandleFunc("GET /api/events/featured", eventHandlers.Featured)
	mux.HandleFunc("GET /api/events/upcoming", eventHandlers.Upcoming)
	mux.HandleFunc("GET /api/events/by-organizer/{id}", eventHandlers.ByOrganizer)
	mux.HandleFunc("GET /api/events/by-venue/{id}", eventHandlers.ByVenue)
	mux.HandleFunc("GET /api/events/by-series/{id}", eventHandlers.BySeries)
	mux.HandleFunc("GET /api/events/{id}", eventHandlers.Get)

	// Organizer endpoints
	mux.Handle("POST /api/events", verifier.Require(http.HandlerFunc(eventHandlers.Create)))
	mux.Handle("PUT /api/events/{id}", verifier.Require(http.HandlerFunc(eventHandlers.Update)))
	mux.Handle("DELETE /api/events/{id}", verifier.Require(http.HandlerFunc(eventHandlers.Cancel)))

	// Attendance
	mux.Handle("POST /api/events/{id}/rsvp", verifier.Require(http.HandlerFunc(rsvpHandlers.CreateOrUpdate)))
	mux.Handle("DELETE /api/events/{id}/rsvp", verifier.Require(http.HandlerFunc(rsvpHandlers.Delete)))
	mux.HandleFunc("GET /api/events/{id}/attendees", rsvpHandlers.Attendees)

	// Ratings
	mux.Handle("POST /api/events/{id}/rate", verifier.Require(http.HandlerFunc(ratingHandlers.Rate)))
	mux.HandleFunc("GET /api/events/{id}/ratings", ratingHandlers.List)

	// Venues
	mux.HandleFunc("GET /api/venues", venueHandlers.List)
	mux.HandleFunc("GET /api/venues/{id}", venueHandlers.Get)
	mux.Handle("POST /api/venues", verifier.Require(http.HandlerFunc(venueHandlers.Create)))

	// Operational endpoints
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
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"poqpoq-events-api","version":"1.0.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware chain: RequestID -> Logging -> Metrics -> CORS -> global rate limit
	var handler http.Handler = mux
	handler = middleware.RateLimiter(limitStore, globalLimit, middleware.IPKeyFunc())(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if tracerProvider.Enabled() {
		handler = middleware.Tracing(tracing.ServiceName)(handler)
	}
	handler = middleware.RequestID(handler)

	// pprof endpoints are only mounted outside production.
	if cfg.Env == "development" {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// redisChecker returns a health checker for the optional Redis client, or nil
// when Redis is not configured.
func redisChecker(client *redis.Client) api.HealthChecker {
	if client == nil {
		return nil
	}
	return health.NewRedisChecker(client)
}
