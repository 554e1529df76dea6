package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is the in-process fallback. Buckets live in a plain map under
// one mutex and are swept lazily: expired entries are dropped the next time
// any request arrives after a sweep interval, so no background goroutine is
// needed.
type MemoryBackend struct {
	mu        sync.Mutex
	buckets   map[string]*memoryBucket
	clock     func() time.Time
	lastSweep time.Time
}

type memoryBucket struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryBackend creates an empty in-process backend. A nil clock defaults
// to time.Now.
func NewMemoryBackend(clock func() time.Time) *MemoryBackend {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryBackend{
		buckets: make(map[string]*memoryBucket),
		clock:   clock,
	}
}

// Incr counts one request against the bucket, creating it with the given TTL
// on first use. Never returns an error.
func (b *MemoryBackend) Incr(_ context.Context, bucketKey string, ttl time.Duration) (int64, error) {
	now := b.clock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) >= ttl {
		b.sweepLocked(now)
	}

	bucket, ok := b.buckets[bucketKey]
	if !ok || !bucket.expiresAt.After(now) {
		bucket = &memoryBucket{expiresAt: now.Add(ttl)}
		b.buckets[bucketKey] = bucket
	}
	bucket.count++
	return bucket.count, nil
}

func (b *MemoryBackend) Name() string { return "memory" }

// Len reports the number of live buckets, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buckets)
}

func (b *MemoryBackend) sweepLocked(now time.Time) {
	for key, bucket := range b.buckets {
		if !bucket.expiresAt.After(now) {
			delete(b.buckets, key)
		}
	}
	b.lastSweep = now
}
