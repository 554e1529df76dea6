package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/apierrors"
	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/observability"
	"github.com/loopboard/loopboard/internal/ratelimit"
)

func newTestServer(t *testing.T, mutate func(*Dependencies)) *Server {
	t.Helper()

	deps := Dependencies{
		Config: &config.Config{},
		Logger: zap.NewNop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return New(deps)
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/does-not-exist")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apierrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestMethodNotAllowedUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodDelete, "/version")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}

	var body apierrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Fatalf("expected error code METHOD_NOT_ALLOWED, got %s", body.Error.Code)
	}
}

func TestHealthEndpointsServeWithoutDependencies(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := doRequest(t, srv, http.MethodGet, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, rec.Code)
		}
	}
}

func TestVersionEndpointThroughRouter(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/version")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		App struct {
			Name string `json:"name"`
		} `json:"app"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.App.Name != "loopboard" {
		t.Fatalf("expected app name loopboard, got %s", body.App.Name)
	}
}

func TestRequestIDEchoedOnResponses(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/version")

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID response header")
	}

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("X-Request-ID", "caller-chosen")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "caller-chosen" {
		t.Fatalf("expected caller-supplied request ID to win, got %s", got)
	}
}

func TestMetricsEndpointExposition(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Config.Metrics.Enabled = true
		deps.Metrics = observability.NewMetrics()
	})

	// Generate one observed request so the request counter has a series.
	doRequest(t, srv, http.MethodGet, "/version")

	rec := doRequest(t, srv, http.MethodGet, "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "loopboard_http_requests_total") {
		t.Fatal("expected request counter in exposition")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatal("expected go collector in exposition")
	}
}

func TestMetricsEndpointNotMountedWhenDisabled(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Metrics = observability.NewMetrics()
	})

	rec := doRequest(t, srv, http.MethodGet, "/metrics")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestJobsRoutesNotMountedWithoutDatabase(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/jobs")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

// Five requests inside one window pass, the sixth is rejected with a usable
// Retry-After, and the next window starts a fresh budget.
func TestRateLimitLifecycleThroughStack(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Unix(1_000_000_000, 0)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Config.RateLimit.BypassPrefixes = []string{"/health"}
		deps.Limiter = ratelimit.New(5, time.Minute, nil, 0, nil, nil, ratelimit.WithClock(clock))
	})

	for i := 0; i < 5; i++ {
		rec := doRequest(t, srv, http.MethodGet, "/version")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
			t.Fatalf("request %d: expected X-RateLimit-Limit 5, got %q", i+1, got)
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/version")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 on sixth request, got %d", rec.Code)
	}
	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 || retryAfter > 60 {
		t.Fatalf("expected Retry-After within (0, 60], got %q", rec.Header().Get("Retry-After"))
	}

	// Health probes bypass the limiter even while the budget is exhausted.
	if rec := doRequest(t, srv, http.MethodGet, "/health/live"); rec.Code != http.StatusOK {
		t.Fatalf("expected bypassed probe to return 200, got %d", rec.Code)
	}

	mu.Lock()
	now = now.Add(61 * time.Second)
	mu.Unlock()

	if rec := doRequest(t, srv, http.MethodGet, "/version"); rec.Code != http.StatusOK {
		t.Fatalf("expected fresh window to admit the request, got %d", rec.Code)
	}
}
