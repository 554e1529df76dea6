// Package cache provides the TTL response cache, the per-content-class HTTP
// header policy, and the middleware composing the two around API handlers.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/observability"
)

// Entry is one cached response: the serialized body, the ETag computed for
// it, and when it was stored (served back as Last-Modified). Expiry is
// tracked by the store, not the entry.
type Entry struct {
	Value       []byte    `json:"value"`
	ETag        string    `json:"etag"`
	ContentType string    `json:"content_type"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store is the TTL key/value backend. Keys are derived from request paths, so
// InvalidatePrefix can drop everything a write touched by path prefix.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
	Name() string
}

// ResponseCache fronts a Store with the same failover posture as the rate
// limiter: the shared store is selected once at startup when reachable, any
// runtime failure degrades permanently to the in-process store with a single
// WARN, and callers never see an infrastructure error. A failed lookup is a
// miss; a failed write is forgotten.
type ResponseCache struct {
	fallback *MemoryStore
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu          sync.RWMutex
	store       Store
	degradeOnce sync.Once
}

// NewResponseCache selects the backing store. redisClient may be nil, which
// selects the in-process store outright. maxEntries bounds the in-process
// store in either case, since it also serves as the fallback.
func NewResponseCache(redisClient *redis.Client, opTimeout time.Duration, maxEntries int, logger *zap.Logger, metrics *observability.Metrics, clock func() time.Time) *ResponseCache {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ResponseCache{
		fallback: NewMemoryStore(maxEntries, clock),
		logger:   logger,
		metrics:  metrics,
	}
	c.store = c.fallback

	if redisClient != nil {
		shared := NewRedisStore(redisClient, opTimeout)
		if err := shared.Ping(context.Background()); err != nil {
			logger.Warn("shared response cache unreachable at startup, using in-process cache",
				zap.Error(err))
		} else {
			c.store = shared
			logger.Info("response cache using shared store backend")
		}
	}

	return c
}

// Get looks the key up, treating any store failure as a miss.
func (c *ResponseCache) Get(ctx context.Context, key string) (Entry, bool) {
	entry, ok, err := c.current().Get(ctx, key)
	if err != nil {
		c.degrade(err)
		entry, ok, _ = c.fallback.Get(ctx, key)
	}
	return entry, ok
}

// Set stores the entry with the given TTL, dropping it on store failure.
func (c *ResponseCache) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) {
	if err := c.current().Set(ctx, key, entry, ttl); err != nil {
		c.degrade(err)
		_ = c.fallback.Set(ctx, key, entry, ttl)
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns how many were dropped.
func (c *ResponseCache) InvalidatePrefix(ctx context.Context, prefix string) int {
	removed, err := c.current().InvalidatePrefix(ctx, prefix)
	if err != nil {
		c.degrade(err)
		removed, _ = c.fallback.InvalidatePrefix(ctx, prefix)
	}
	if c.metrics != nil && removed > 0 {
		c.metrics.CacheInvalidations.Add(float64(removed))
	}
	return removed
}

// StoreName reports which store currently serves lookups.
func (c *ResponseCache) StoreName() string {
	return c.current().Name()
}

func (c *ResponseCache) current() Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

func (c *ResponseCache) degrade(err error) {
	c.degradeOnce.Do(func() {
		c.mu.Lock()
		c.store = c.fallback
		c.mu.Unlock()
		c.logger.Warn("shared response cache failed, degrading to in-process cache",
			zap.Error(err))
	})
}
