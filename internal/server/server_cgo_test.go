//go:build cgo

package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/db"
)

type jobsPageBody struct {
	Items []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"items"`
	HasNext    bool   `json:"has_next"`
	NextCursor string `json:"next_cursor"`
	Total      *int64 `json:"total"`
}

// newJobsServer assembles the full read path against a fresh in-memory
// database: feed, response cache and header policy, no rate limiting.
func newJobsServer(t *testing.T) (*Server, *db.Feed) {
	t.Helper()

	pool, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	ctx := context.Background()
	if err := pool.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	router := db.NewRouter(pool, nil, 0, nil, nil)
	feed := db.NewFeed(router)

	responseCache := cache.NewResponseCache(nil, 0, 0, nil, nil, nil)
	apiCache := cache.NewAPIResponseCache(responseCache, cache.NewHeaderPolicy(), nil)

	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Config.Pagination.DefaultLimit = 20
		deps.Config.Pagination.MaxLimit = 100
		deps.DB = router
		deps.Feed = feed
		deps.APICache = apiCache
	})
	return srv, feed
}

func seedServerJobs(t *testing.T, feed *db.Feed, n int, category string) {
	t.Helper()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		_, err := feed.InsertJob(context.Background(), db.Job{
			Title:     fmt.Sprintf("Job %d", i),
			Company:   "Acme",
			Category:  category,
			CreatedAt: ts,
			UpdatedAt: ts,
		})
		if err != nil {
			t.Fatalf("failed to seed job %d: %v", i, err)
		}
	}
}

func getPage(t *testing.T, srv *Server, target string) (jobsPageBody, *httptest.ResponseRecorder) {
	t.Helper()

	rec := doRequest(t, srv, http.MethodGet, target)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s: expected status 200, got %d: %s", target, rec.Code, rec.Body.String())
	}

	var page jobsPageBody
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("GET %s: failed to decode page: %v", target, err)
	}
	return page, rec
}

// A 25-row feed read with limit 20 yields a full page plus cursor; the
// cursor fetches the remaining five and reports the end of the feed.
func TestJobsFeedPaginationOverHTTP(t *testing.T) {
	srv, feed := newJobsServer(t)
	seedServerJobs(t, feed, 25, "engineering")

	first, _ := getPage(t, srv, "/api/jobs?limit=20")

	if len(first.Items) != 20 {
		t.Fatalf("expected 20 items, got %d", len(first.Items))
	}
	if !first.HasNext {
		t.Fatal("expected has_next on the first page")
	}
	if first.NextCursor == "" {
		t.Fatal("expected a next cursor on the first page")
	}
	if first.Items[0].ID != 25 || first.Items[19].ID != 6 {
		t.Fatalf("expected ids 25..6, got %d..%d", first.Items[0].ID, first.Items[19].ID)
	}
	if first.Total != nil {
		t.Fatal("cursor mode must not count the feed")
	}

	second, _ := getPage(t, srv, "/api/jobs?limit=20&cursor="+url.QueryEscape(first.NextCursor))

	if len(second.Items) != 5 {
		t.Fatalf("expected 5 items on the final page, got %d", len(second.Items))
	}
	if second.HasNext {
		t.Fatal("expected has_next false on the final page")
	}
	if second.NextCursor != "" {
		t.Fatalf("expected no cursor past the end, got %q", second.NextCursor)
	}
	if second.Items[0].ID != 5 || second.Items[4].ID != 1 {
		t.Fatalf("expected ids 5..1, got %d..%d", second.Items[0].ID, second.Items[4].ID)
	}
}

func TestOffsetPaginationWithTotalOverHTTP(t *testing.T) {
	srv, feed := newJobsServer(t)
	seedServerJobs(t, feed, 25, "engineering")

	page, _ := getPage(t, srv, "/api/jobs?skip=10&limit=10&include_total=true")

	if len(page.Items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(page.Items))
	}
	if page.Items[0].ID != 15 || page.Items[9].ID != 6 {
		t.Fatalf("expected ids 15..6, got %d..%d", page.Items[0].ID, page.Items[9].ID)
	}
	if page.Total == nil || *page.Total != 25 {
		t.Fatalf("expected total 25, got %v", page.Total)
	}
	if !page.HasNext {
		t.Fatal("expected has_next with rows remaining")
	}
}

// First read misses and stores, the repeat hits, and a conditional request
// with the returned ETag collapses to an empty 304.
func TestConditionalRequestFlowOverHTTP(t *testing.T) {
	srv, feed := newJobsServer(t)
	seedServerJobs(t, feed, 3, "it")

	const target = "/api/jobs/list?category=it"

	_, miss := getPage(t, srv, target)
	if got := miss.Header().Get("X-Cache"); got != "MISS" {
		t.Fatalf("expected X-Cache MISS on first read, got %q", got)
	}
	etag := miss.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag on the cached response")
	}

	_, hit := getPage(t, srv, target)
	if got := hit.Header().Get("X-Cache"); got != "HIT" {
		t.Fatalf("expected X-Cache HIT on repeat read, got %q", got)
	}
	if got := hit.Header().Get("ETag"); got != etag {
		t.Fatalf("expected stable ETag, got %q then %q", etag, got)
	}

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected status 304, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty 304 body, got %d bytes", rec.Body.Len())
	}
}

// Creating a job drops the cached listings, so the next read refetches and
// sees the new row first.
func TestCreateInvalidatesCachedListing(t *testing.T) {
	srv, feed := newJobsServer(t)
	seedServerJobs(t, feed, 2, "design")

	const target = "/api/jobs?category=design"

	before, rec := getPage(t, srv, target)
	if len(before.Items) != 2 {
		t.Fatalf("expected 2 seeded items, got %d", len(before.Items))
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Fatalf("expected X-Cache MISS on first read, got %q", got)
	}

	if _, rec := getPage(t, srv, target); rec.Header().Get("X-Cache") != "HIT" {
		t.Fatal("expected repeat read to hit the cache")
	}

	body := `{"title":"Motion Designer","company":"Studio","category":"design"}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body))
	created := httptest.NewRecorder()
	srv.Handler().ServeHTTP(created, req)

	if created.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", created.Code, created.Body.String())
	}
	var createdBody struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(created.Body).Decode(&createdBody); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if createdBody.ID == 0 {
		t.Fatal("expected a created job id")
	}

	after, rec := getPage(t, srv, target)
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Fatalf("expected invalidation to force a refetch, got X-Cache %q", got)
	}
	if len(after.Items) != 3 {
		t.Fatalf("expected 3 items after create, got %d", len(after.Items))
	}
	if after.Items[0].Title != "Motion Designer" {
		t.Fatalf("expected the new job first, got %q", after.Items[0].Title)
	}
}
