package httprouter_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httprouter "reelgrab/internal/infrastructure/delivery/http"
	"reelgrab/internal/observability"
	"reelgrab/internal/session"
)

// metrics registers against the default registry; one instance per test binary.
var testMetrics = observability.New()

func testRouter(t *testing.T) (*httprouter.Router, *session.Store) {
	t.Helper()

	sessions := session.New(slog.New(slog.DiscardHandler))

	return httprouter.New(slog.New(slog.DiscardHandler), sessions, testMetrics), sessions
}

func TestReadyz(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	if reqID := rec.Header().Get("X-Request-ID"); reqID == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}

func TestGetStats(t *testing.T) {
	router, sessions := testRouter(t)

	sessions.IncMessageCount(1)
	sessions.IncMessageCount(2)

	if err := sessions.TryBegin(1, "https://www.tiktok.com/@a/video/1"); err != nil {
		t.Fatalf("TryBegin: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Message string        `json:"message"`
		Data    session.Stats `json:"data"`
	}

	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Data.Users != 2 {
		t.Errorf("users = %d, want 2", resp.Data.Users)
	}

	if resp.Data.InFlight != 1 {
		t.Errorf("in flight = %d, want 1", resp.Data.InFlight)
	}
}

func TestUnknownRoute(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
