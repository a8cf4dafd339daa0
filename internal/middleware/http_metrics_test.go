package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return m, reg
}

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestHTTPMetricsRecordsBrowseRequest(t *testing.T) {
	m, reg := newTestMetrics(t)
	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"events":[],"total":0}`))
	}))

	// The raw event ID must be collapsed to the route pattern in labels.
	req := httptest.NewRequest(http.MethodGet, "/api/events/8d2f1c3a-77aa-4e0b-9f10-51c07c4a7b1e", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
	if total == nil {
		t.Fatal("request counter not registered")
	}
	if len(total.GetMetric()) != 1 {
		t.Fatalf("label sets = %d, want 1", len(total.GetMetric()))
	}
	metric := total.GetMetric()[0]
	if got := labelValue(metric, "path"); got != "/api/events/{id}" {
		t.Errorf("path label = %q, want %q", got, "/api/events/{id}")
	}
	if got := labelValue(metric, "method"); got != "GET" {
		t.Errorf("method label = %q, want %q", got, "GET")
	}
	if got := labelValue(metric, "status"); got != "200" {
		t.Errorf("status label = %q, want %q", got, "200")
	}

	duration := gatherFamily(t, reg, MetricHTTPRequestDuration)
	if duration == nil || len(duration.GetMetric()) == 0 {
		t.Error("duration histogram recorded nothing")
	}
}

func TestHTTPMetricsRecordsRequestAndResponseSizes(t *testing.T) {
	m, reg := newTestMetrics(t)
	responseBody := `{"id":"evt-1","status":"going"}`
	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(responseBody))
	}))

	requestBody := `{"status":"going"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/evt-1/rsvp", strings.NewReader(requestBody))
	req.Header.Set("Content-Length", strconv.Itoa(len(requestBody)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respSize := gatherFamily(t, reg, MetricHTTPResponseSizeBytes)
	if respSize == nil || len(respSize.GetMetric()) != 1 {
		t.Fatal("response size histogram missing")
	}
	hist := respSize.GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 1 {
		t.Errorf("response size samples = %d, want 1", hist.GetSampleCount())
	}
	if hist.GetSampleSum() != float64(len(responseBody)) {
		t.Errorf("response size sum = %f, want %d", hist.GetSampleSum(), len(responseBody))
	}

	reqSize := gatherFamily(t, reg, MetricHTTPRequestSizeBytes)
	if reqSize == nil || len(reqSize.GetMetric()) != 1 {
		t.Fatal("request size histogram missing")
	}
	if sum := reqSize.GetMetric()[0].GetHistogram().GetSampleSum(); sum != float64(len(requestBody)) {
		t.Errorf("request size sum = %f, want %d", sum, len(requestBody))
	}
}

// Probes from the orchestrator hit /health and /ready every few seconds;
// counting them would swamp the real traffic numbers.
func TestHTTPMetricsSkipsHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/health", "/ready"} {
		t.Run(path, func(t *testing.T) {
			m, reg := newTestMetrics(t)
			handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"healthy"}`))
			}))

			req := httptest.NewRequest(http.MethodGet, path, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
			if total != nil && len(total.GetMetric()) > 0 {
				t.Errorf("%s was counted in request metrics", path)
			}
		})
	}
}

func TestHTTPMetricsErrorStatusLabel(t *testing.T) {
	m, reg := newTestMetrics(t)
	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not_found"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/venues/no-such-venue", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
	if total == nil || len(total.GetMetric()) != 1 {
		t.Fatal("request counter missing")
	}
	metric := total.GetMetric()[0]
	if got := labelValue(metric, "status"); got != "404" {
		t.Errorf("status label = %q, want %q", got, "404")
	}
	if got := labelValue(metric, "path"); got != "/api/venues/{id}" {
		t.Errorf("path label = %q, want %q", got, "/api/venues/{id}")
	}
}

func TestMetricsResponseWriterAccumulatesSize(t *testing.T) {
	rec := httptest.NewRecorder()
	mrw := newMetricsResponseWriter(rec)

	n1, err := mrw.Write([]byte(`{"events":[`))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	n2, err := mrw.Write([]byte(`]}`))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if mrw.size != int64(n1+n2) {
		t.Errorf("size = %d, want %d", mrw.size, n1+n2)
	}
}

func TestMetricsResponseWriterFirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	mrw := newMetricsResponseWriter(rec)

	mrw.WriteHeader(http.StatusTooManyRequests)
	mrw.WriteHeader(http.StatusOK)

	if mrw.statusCode != http.StatusTooManyRequests {
		t.Errorf("statusCode = %d, want %d", mrw.statusCode, http.StatusTooManyRequests)
	}
}

func TestObserveHTTPRequestDistinctLabelSets(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.ObserveHTTPRequest("GET", "/api/events", "200", 0.012, 0, 512)
	m.ObserveHTTPRequest("GET", "/api/events", "200", 0.034, 0, 764)
	m.ObserveHTTPRequest("POST", "/api/events", "201", 0.050, 280, 96)

	total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
	if total == nil {
		t.Fatal("request counter missing")
	}
	if len(total.GetMetric()) != 2 {
		t.Errorf("label sets = %d, want 2 (GET/200 and POST/201)", len(total.GetMetric()))
	}
}
