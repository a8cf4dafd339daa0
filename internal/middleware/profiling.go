package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig controls the pprof surface. The endpoints leak memory
// contents and runtime internals, so they are mounted only in development.
type ProfilingConfig struct {
	Enabled     bool
	Environment string
}

// Profiling mounts net/http/pprof under /debug/pprof/ ahead of the API mux.
// The middleware refuses to activate when Environment looks like production,
// regardless of Enabled, so a miswired env file cannot expose the profiler.
func Profiling(cfg ProfilingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		if cfg.Environment == "production" || cfg.Environment == "prod" {
			slog.Error("refusing to enable profiling in production", "environment", cfg.Environment)
			return next
		}

		slog.Warn("pprof endpoints enabled", "environment", cfg.Environment)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/debug/pprof") {
				next.ServeHTTP(w, r)
				return
			}
			switch r.URL.Path {
			case "/debug/pprof/cmdline":
				pprof.Cmdline(w, r)
			case "/debug/pprof/profile":
				pprof.Profile(w, r)
			case "/debug/pprof/symbol":
				pprof.Symbol(w, r)
			case "/debug/pprof/trace":
				pprof.Trace(w, r)
			default:
				// Index also serves the named runtime profiles
				// (heap, goroutine, block, mutex, allocs).
				pprof.Index(w, r)
			}
		})
	}
}
