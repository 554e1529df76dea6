package cache

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/loopboard/loopboard/internal/observability"
)

// APIResponseCache composes the response cache, the header policy and cache
// key derivation around API handlers. Mutating handlers are responsible for
// calling Invalidate with every path prefix their write affects; nothing here
// watches writes.
type APIResponseCache struct {
	cache    *ResponseCache
	policy   *HeaderPolicy
	metrics  *observability.Metrics
	clock    func() time.Time
	identity func(ctx context.Context) string
}

// Option adjusts APIResponseCache construction.
type Option func(*APIResponseCache)

// WithIdentityFunc supplies the caller-identity lookup used by user-scoped
// strategies. Without one, user-scoped strategies serve uncached: a shared
// entry would leak one user's response to another.
func WithIdentityFunc(fn func(ctx context.Context) string) Option {
	return func(a *APIResponseCache) { a.identity = fn }
}

// WithClock replaces the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(a *APIResponseCache) { a.clock = clock }
}

// NewAPIResponseCache wires a ResponseCache and a HeaderPolicy together.
func NewAPIResponseCache(cache *ResponseCache, policy *HeaderPolicy, metrics *observability.Metrics, opts ...Option) *APIResponseCache {
	a := &APIResponseCache{
		cache:   cache,
		policy:  policy,
		metrics: metrics,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key derives the cache key for a request under a strategy: path, then the
// canonicalized query, then the caller identity for user-scoped strategies.
// Keys start with the request path so prefix invalidation works by path.
func (a *APIResponseCache) Key(r *http.Request, strategy Strategy) string {
	var b strings.Builder
	b.WriteString(r.URL.Path)

	if query := canonicalQuery(r.URL.Query()); query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}

	if strategy.UserScoped && a.identity != nil {
		if id := a.identity(r.Context()); id != "" {
			b.WriteString("|u=")
			b.WriteString(id)
		}
	}
	return b.String()
}

// Invalidate removes every cached response for paths under the prefix and
// returns how many entries were dropped.
func (a *APIResponseCache) Invalidate(ctx context.Context, pathPrefix string) int {
	return a.cache.InvalidatePrefix(ctx, pathPrefix)
}

// Middleware caches GET responses under the named strategy. Cached hits are
// revalidated against If-None-Match and answered 304 with an empty body when
// the client's ETag still matches.
func (a *APIResponseCache) Middleware(strategyName string) func(http.Handler) http.Handler {
	strategy := a.policy.Strategy(strategyName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			// User-scoped strategies need an identity source to key by;
			// without one a shared entry would cross user boundaries.
			if !strategy.Cacheable() || (strategy.UserScoped && a.identity == nil) {
				strategy.ApplyHeaders(w.Header())
				next.ServeHTTP(w, r)
				return
			}

			key := a.Key(r, strategy)
			if entry, ok := a.cache.Get(r.Context(), key); ok {
				a.serveHit(w, r, strategy, entry)
				return
			}

			capture := newCaptureWriter()
			next.ServeHTTP(capture, r)
			a.serveMiss(w, r, strategy, key, capture)
		})
	}
}

func (a *APIResponseCache) serveHit(w http.ResponseWriter, r *http.Request, strategy Strategy, entry Entry) {
	header := w.Header()
	strategy.ApplyHeaders(header)
	header.Set("ETag", entry.ETag)
	if !entry.StoredAt.IsZero() {
		header.Set("Last-Modified", entry.StoredAt.UTC().Format(http.TimeFormat))
	}
	header.Set("X-Cache", "HIT")

	if ETagMatches(r.Header.Get("If-None-Match"), entry.ETag) {
		a.record("revalidated")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	a.record("hit")
	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Value)
}

// serveMiss relays the handler's response, storing it first when it is a
// non-empty 200. Anything else (errors, empty bodies, responses the handler
// could not serialize) is passed through uncached and unadorned.
func (a *APIResponseCache) serveMiss(w http.ResponseWriter, r *http.Request, strategy Strategy, key string, capture *captureWriter) {
	header := w.Header()
	for name, values := range capture.header {
		for _, value := range values {
			header.Add(name, value)
		}
	}

	body := capture.body.Bytes()
	if capture.Status() == http.StatusOK && len(body) > 0 {
		etag := GenerateETag(body)
		now := a.clock()
		a.cache.Set(r.Context(), key, Entry{
			Value:       body,
			ETag:        etag,
			ContentType: capture.header.Get("Content-Type"),
			StoredAt:    now,
		}, strategy.TTL)

		strategy.ApplyHeaders(header)
		header.Set("ETag", etag)
		header.Set("Last-Modified", now.UTC().Format(http.TimeFormat))
		header.Set("X-Cache", "MISS")
		a.record("miss")
	} else {
		a.record("bypass")
	}

	w.WriteHeader(capture.Status())
	_, _ = w.Write(body)
}

func (a *APIResponseCache) record(outcome string) {
	if a.metrics != nil {
		a.metrics.CacheRequests.WithLabelValues(outcome).Inc()
	}
}

// canonicalQuery renders query params with sorted keys and sorted values per
// key, so parameter order never splinters the cache.
func canonicalQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		vals := append([]string(nil), values[key]...)
		sort.Strings(vals)
		for _, val := range vals {
			if b.Len() > 0 {
				b.WriteString("&")
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}

// captureWriter buffers a handler's response so it can be cached before being
// relayed to the client.
type captureWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: make(http.Header)}
}

func (c *captureWriter) Header() http.Header {
	return c.header
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return c.body.Write(b)
}

func (c *captureWriter) Status() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
