package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gymdesk/internal/adapters/http/perf"
)

// TestTimingMiddleware_EmitsEntry verifies that a request entry is recorded.
func TestTimingMiddleware_EmitsEntry(t *testing.T) {
	collector := perf.NewCollector()
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/attendance", nil))

	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry a request id")
	}
}

// TestTimingMiddleware_KeepsRequestID echoes a caller-supplied id.
func TestTimingMiddleware_KeepsRequestID(t *testing.T) {
	handler := Timing(nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

// TestTimingMiddleware_CapturesStatusCode verifies the status code is captured.
func TestTimingMiddleware_CapturesStatusCode(t *testing.T) {
	collector := perf.NewCollector()
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimingMiddleware_NilCollector verifies middleware works without a collector.
func TestTimingMiddleware_NilCollector(t *testing.T) {
	handler := Timing(nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/test", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_RouteSurvivesContextCopies records the mux pattern even
// when a middleware in between replaces the request with a WithContext copy.
func TestTimingMiddleware_RouteSurvivesContextCopies(t *testing.T) {
	collector := perf.NewCollector()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/members/{id}", func(w http.ResponseWriter, r *http.Request) {})

	sess := Session{AccountID: 1, Role: "admin"}
	copyContext := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
	handler := Chain(mux, CaptureRoute, copyContext, Timing(collector, 0))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/members/7", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nowhere", nil))

	routes := requestRoutes(t, collector)
	if routes["GET /api/members/{id}"] != 1 {
		t.Errorf("routes = %v, want one GET /api/members/{id}", routes)
	}
	if routes["unmatched"] != 1 {
		t.Errorf("routes = %v, want one unmatched", routes)
	}
}

// requestRoutes returns the request histogram's sample count per route label.
func requestRoutes(t *testing.T, collector *perf.Collector) map[string]uint64 {
	t.Helper()
	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	routes := map[string]uint64{}
	for _, mf := range families {
		if mf.GetName() != "gymdesk_http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					routes[lp.GetValue()] += m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return routes
}
