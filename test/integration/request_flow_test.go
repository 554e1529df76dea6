package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/ratelimit"
	"github.com/loopboard/loopboard/internal/realtime"
	"github.com/loopboard/loopboard/internal/server"
)

// newStack assembles a full server the way the serve command does, minus the
// external backends: no Redis and no database, so the limiter and cache run
// on their in-process stores and the jobs routes stay unmounted.
func newStack(t *testing.T, mutate func(*server.Dependencies)) *server.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Pagination.DefaultLimit = 20
	cfg.Pagination.MaxLimit = 100

	deps := server.Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return server.New(deps)
}

// Walks the documented request flow through the assembled middleware chain:
// the limiter gates and stamps every response, the response cache serves
// misses, hits and conditional 304s, and the rejection past the budget
// carries the flat detail body while bypass prefixes keep serving.
func TestRequestFlowThroughLimiterAndCache(t *testing.T) {
	var handlerCalls int
	var apiCache *cache.APIResponseCache

	srv := newStack(t, func(deps *server.Dependencies) {
		deps.Config.RateLimit.BypassPrefixes = []string{"/health"}
		deps.Limiter = ratelimit.New(5, time.Minute, nil, 0, nil, nil)

		store := cache.NewResponseCache(nil, 0, 128, nil, nil, nil)
		apiCache = cache.NewAPIResponseCache(store, cache.NewHeaderPolicy(), nil)
		deps.APICache = apiCache
	})

	mux, ok := srv.Handler().(*chi.Mux)
	require.True(t, ok, "server handler should be a chi mux")

	// A stand-in for any read endpoint behind the public-list strategy.
	mux.Group(func(r chi.Router) {
		r.Use(apiCache.Middleware(cache.StrategyPublicList))
		r.Get("/api/widgets", func(w http.ResponseWriter, req *http.Request) {
			handlerCalls++
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"widgets":["a","b"]}`))
		})
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get := func(path string, header http.Header) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		require.NoError(t, err)
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	// Request 1: cold cache.
	resp := get("/api/widgets", nil)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "60", resp.Header.Get("X-RateLimit-Window"))
	assert.Contains(t, resp.Header.Get("Cache-Control"), "public")
	assert.JSONEq(t, `{"widgets":["a","b"]}`, string(body))

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	// Request 2: served from the cache, handler untouched.
	resp = get("/api/widgets", nil)
	cached, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Equal(t, etag, resp.Header.Get("ETag"))
	assert.JSONEq(t, string(body), string(cached))
	assert.Equal(t, 1, handlerCalls)

	// Request 3: conditional revalidation.
	resp = get("/api/widgets", http.Header{"If-None-Match": []string{etag}})
	empty, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, empty)
	assert.Equal(t, 1, handlerCalls)

	// Requests 4 and 5 spend the rest of the budget.
	for i := 0; i < 2; i++ {
		resp = get("/version", nil)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// Request 6: over budget.
	resp = get("/version", nil)
	rejected, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var detail struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rejected, &detail))
	assert.Contains(t, detail.Detail, "Too many requests")

	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 60)

	// Health probes bypass the limiter even with the budget spent.
	resp = get("/health/live", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// Two authenticated viewers on separate sockets both receive a like_update
// emitted through the internal events endpoint, since counter updates fan
// out globally rather than per room.
func TestLikeUpdateBroadcastReachesEveryViewer(t *testing.T) {
	const secret = "integration-secret"

	srv := newStack(t, func(deps *server.Dependencies) {
		deps.Config.Realtime.TokenSecret = secret
		deps.Hub = realtime.NewHub(nil, nil)
		deps.Verifier = realtime.NewTokenVerifier(secret)
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	dial := func(userID int64, name string) *websocket.Conn {
		t.Helper()
		token, err := realtime.MintToken(secret, userID, name, time.Minute)
		require.NoError(t, err)

		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		return conn
	}

	// Reads frames until the wanted type arrives; greeting and presence
	// frames interleave depending on connection order.
	waitForFrame := func(conn *websocket.Conn, eventType string) map[string]interface{} {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			require.NoError(t, conn.SetReadDeadline(deadline))
			var frame map[string]interface{}
			require.NoError(t, conn.ReadJSON(&frame))
			if frame["type"] == eventType {
				return frame
			}
		}
	}

	viewerA := dial(1, "Ana")
	defer viewerA.Close()
	viewerB := dial(2, "Bo")
	defer viewerB.Close()

	waitForFrame(viewerA, "connected")
	waitForFrame(viewerB, "connected")

	body := `{"type":"like_update","post_id":42,"like_count":7,"user_id":1}`
	resp, err := http.Post(ts.URL+"/internal/events", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	for _, conn := range []*websocket.Conn{viewerA, viewerB} {
		frame := waitForFrame(conn, "like_update")
		assert.Equal(t, float64(42), frame["post_id"])
		assert.Equal(t, float64(7), frame["like_count"])
	}
}
