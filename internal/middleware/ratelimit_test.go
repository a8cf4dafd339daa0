package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// browseLimit mirrors the per-minute search budget applied to GET /api/events.
func browseLimit(n int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: n, WindowDuration: window}
}

func TestInMemoryStoreFixedWindow(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		sends   int
		allowed int
	}{
		{"under budget", 30, 10, 10},
		{"exactly at budget", 30, 30, 30},
		{"over budget", 30, 35, 30},
		{"budget of one", 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemoryRateLimitStore()
			cfg := browseLimit(tt.limit, time.Minute)
			ctx := context.Background()

			got := 0
			for i := 0; i < tt.sends; i++ {
				if ok, _ := store.Allow(ctx, "user:avatar-1", cfg); ok {
					got++
				}
			}
			if got != tt.allowed {
				t.Errorf("allowed %d of %d, want %d", got, tt.sends, tt.allowed)
			}
		})
	}
}

func TestInMemoryStoreRetryAfter(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := browseLimit(1, 10*time.Second)
	ctx := context.Background()

	if ok, retry := store.Allow(ctx, "ip:203.0.113.9", cfg); !ok || retry != 0 {
		t.Fatalf("first request: ok=%v retry=%d, want allowed with no delay", ok, retry)
	}
	ok, retry := store.Allow(ctx, "ip:203.0.113.9", cfg)
	if ok {
		t.Fatal("second request in the window was allowed")
	}
	if retry < 1 || retry > 10 {
		t.Errorf("retry = %d, want within the 10s window", retry)
	}
}

func TestInMemoryStoreKeysIsolated(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := browseLimit(1, time.Minute)
	ctx := context.Background()

	// One avatar exhausting its budget must not affect another.
	if ok, _ := store.Allow(ctx, "user:avatar-1", cfg); !ok {
		t.Fatal("avatar-1 first request blocked")
	}
	if ok, _ := store.Allow(ctx, "user:avatar-1", cfg); ok {
		t.Fatal("avatar-1 second request allowed")
	}
	if ok, _ := store.Allow(ctx, "user:avatar-2", cfg); !ok {
		t.Error("avatar-2 blocked by avatar-1's bucket")
	}
}

func TestInMemoryStoreWindowExpiry(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := browseLimit(1, 40*time.Millisecond)
	ctx := context.Background()

	store.Allow(ctx, "ip:10.1.1.1", cfg)
	if ok, _ := store.Allow(ctx, "ip:10.1.1.1", cfg); ok {
		t.Fatal("request within the window was allowed")
	}
	time.Sleep(50 * time.Millisecond)
	if ok, _ := store.Allow(ctx, "ip:10.1.1.1", cfg); !ok {
		t.Error("request after window expiry was blocked")
	}
}

func TestInMemoryStoreConcurrentBudget(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := browseLimit(30, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 90; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Allow(ctx, "user:avatar-1", cfg); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 30 {
		t.Errorf("allowed = %d, want exactly the budget of 30", allowed)
	}
}

func TestInMemoryStoreCleanup(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := browseLimit(1, 40*time.Millisecond)
	ctx := context.Background()

	store.Allow(ctx, "ip:10.1.1.1", cfg)
	store.Allow(ctx, "ip:10.1.1.2", cfg)
	time.Sleep(50 * time.Millisecond)
	store.Cleanup()

	if ok, _ := store.Allow(ctx, "ip:10.1.1.1", cfg); !ok {
		t.Error("fresh request after cleanup was blocked")
	}
}

func TestIPKeyFunc(t *testing.T) {
	keyFunc := IPKeyFunc()

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{"remote addr with port", "192.0.2.7:52110", "", "", "192.0.2.7"},
		{"remote addr without port", "192.0.2.7", "", "", "192.0.2.7"},
		{"ipv6 remote addr", "[2001:db8::9]:443", "", "", "2001:db8::9"},
		{"forwarded-for wins", "10.0.0.1:52110", "203.0.113.50", "", "203.0.113.50"},
		{"first hop of forwarded chain", "10.0.0.1:52110", "203.0.113.50, 198.51.100.1", "", "203.0.113.50"},
		{"forwarded chain with padding", "10.0.0.1:52110", "  203.0.113.50 , 198.51.100.1", "", "203.0.113.50"},
		{"real-ip fallback", "10.0.0.1:52110", "", " 203.0.113.50 ", "203.0.113.50"},
		{"forwarded-for beats real-ip", "10.0.0.1:52110", "203.0.113.50", "198.51.100.1", "203.0.113.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := keyFunc(req); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}

// Authenticated browse requests are limited per avatar, anonymous ones per IP,
// so one shared NAT egress cannot exhaust logged-in users' search budget.
func TestUserKeyFunc(t *testing.T) {
	keyFunc := UserKeyFunc()

	req := httptest.NewRequest(http.MethodGet, "/api/events?q=dance", nil)
	req.RemoteAddr = "192.0.2.7:52110"
	if got, want := keyFunc(req), "ip:192.0.2.7"; got != want {
		t.Errorf("anonymous key = %q, want %q", got, want)
	}

	req = req.WithContext(SetUserID(req.Context(), "avatar-77"))
	if got, want := keyFunc(req), "user:avatar-77"; got != want {
		t.Errorf("authenticated key = %q, want %q", got, want)
	}
}

func TestRateLimiterRejectsOverBudget(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	handler := RateLimiter(store, browseLimit(3, time.Minute), IPKeyFunc())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/events?q=live+music", nil)
		req.RemoteAddr = "192.0.2.7:52110"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 3; i++ {
		if rr := send(); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rr.Code, http.StatusOK)
		}
	}

	rr := send()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusTooManyRequests)
	}

	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Errorf("Retry-After = %q, want seconds within the window", rr.Header().Get("Retry-After"))
	}
	reset, err := strconv.ParseInt(rr.Header().Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		t.Fatalf("X-RateLimit-Reset not a Unix timestamp: %v", err)
	}
	now := time.Now().Unix()
	if reset <= now-1 || reset > now+60 {
		t.Errorf("X-RateLimit-Reset = %d, want within the window of now=%d", reset, now)
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("429 body is not JSON: %v", err)
	}
	if body.Error != "rate_limited" {
		t.Errorf("error = %q, want %q", body.Error, "rate_limited")
	}
}

func TestRateLimiterClientsIndependent(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	handler := RateLimiter(store, browseLimit(2, time.Minute), IPKeyFunc())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/events/upcoming", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	send("192.0.2.7:52110")
	send("192.0.2.7:52110")
	if code := send("192.0.2.7:52110"); code != http.StatusTooManyRequests {
		t.Fatalf("exhausted client: status = %d, want 429", code)
	}
	if code := send("198.51.100.4:40100"); code != http.StatusOK {
		t.Errorf("fresh client: status = %d, want 200", code)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	handler := RateLimiter(store, browseLimit(1, 40*time.Millisecond), IPKeyFunc())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.RemoteAddr = "192.0.2.7:52110"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request: status = %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", code)
	}
	time.Sleep(50 * time.Millisecond)
	if code := send(); code != http.StatusOK {
		t.Errorf("request after reset: status = %d, want 200", code)
	}
}

func TestRateLimitConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RateLimitConfig
		wantErr bool
	}{
		{"valid", browseLimit(30, time.Minute), false},
		{"zero budget", browseLimit(0, time.Minute), true},
		{"negative budget", browseLimit(-5, time.Minute), true},
		{"zero window", browseLimit(30, 0), true},
		{"negative window", browseLimit(30, -time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
