package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func apiStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})
}

func TestProfilingRouting(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ProfilingConfig
		path     string
		wantBody string // "" means the pprof handler served it
	}{
		{
			name:     "disabled passes pprof path to the API",
			cfg:      ProfilingConfig{Enabled: false, Environment: "development"},
			path:     "/debug/pprof/",
			wantBody: "api",
		},
		{
			name: "enabled serves the pprof index",
			cfg:  ProfilingConfig{Enabled: true, Environment: "development"},
			path: "/debug/pprof/",
		},
		{
			name: "enabled serves a named runtime profile",
			cfg:  ProfilingConfig{Enabled: true, Environment: "development"},
			path: "/debug/pprof/goroutine?debug=1",
		},
		{
			name:     "enabled leaves API routes alone",
			cfg:      ProfilingConfig{Enabled: true, Environment: "development"},
			path:     "/api/events/upcoming",
			wantBody: "api",
		},
		{
			name:     "production refuses activation even when enabled",
			cfg:      ProfilingConfig{Enabled: true, Environment: "production"},
			path:     "/debug/pprof/",
			wantBody: "api",
		},
		{
			name:     "prod alias refuses activation",
			cfg:      ProfilingConfig{Enabled: true, Environment: "prod"},
			path:     "/debug/pprof/heap",
			wantBody: "api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Profiling(tt.cfg)(apiStub())
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
			}
			body := rr.Body.String()
			if tt.wantBody != "" {
				if body != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
				return
			}
			if body == "api" {
				t.Fatal("pprof path fell through to the API handler")
			}
			if !strings.Contains(body, "pprof") && !strings.Contains(body, "goroutine") {
				t.Errorf("unexpected pprof response body: %q", body)
			}
		})
	}
}
