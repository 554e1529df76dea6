package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend counts windows in a shared Redis so every process enforcing
// the limit sees the same counters. Each operation carries its own short
// timeout; a slow store must trigger fallback, not stall the request.
type RedisBackend struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewRedisBackend wraps an existing client. opTimeout bounds each store call
// and defaults to two seconds when zero.
func NewRedisBackend(client *redis.Client, opTimeout time.Duration) *RedisBackend {
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &RedisBackend{client: client, opTimeout: opTimeout}
}

// Ping probes the store. Used once at startup to decide whether the shared
// backend is usable at all.
func (b *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	return b.client.Ping(ctx).Err()
}

// Incr atomically increments the bucket and sets its expiry on first use.
// INCR and EXPIRE NX ride one pipeline so a crashed process cannot leave an
// immortal counter behind.
func (b *RedisBackend) Incr(ctx context.Context, bucketKey string, ttl time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()

	pipe := b.client.Pipeline()
	incr := pipe.Incr(ctx, bucketKey)
	pipe.ExpireNX(ctx, bucketKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (b *RedisBackend) Name() string { return "redis" }

// Bucket describes one live window bucket in the shared store.
type Bucket struct {
	ClientKey   string
	WindowStart int64
	Count       int64
	TTL         time.Duration
}

// ListBuckets scans the shared store for live buckets. Supports the admin
// CLI; in-process buckets of a running server are not reachable this way.
func (b *RedisBackend) ListBuckets(ctx context.Context) ([]Bucket, error) {
	var buckets []Bucket

	iter := b.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		clientKey, windowStart, err := ParseBucketKey(key)
		if err != nil {
			continue
		}

		pipe := b.client.Pipeline()
		get := pipe.Get(ctx, key)
		ttl := pipe.TTL(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return nil, err
		}

		count, err := strconv.ParseInt(get.Val(), 10, 64)
		if err != nil {
			continue
		}
		buckets = append(buckets, Bucket{
			ClientKey:   clientKey,
			WindowStart: windowStart,
			Count:       count,
			TTL:         ttl.Val(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}

// ResetClient deletes every bucket belonging to one client key and returns
// the number of buckets removed.
func (b *RedisBackend) ResetClient(ctx context.Context, clientKey string) (int64, error) {
	var removed int64

	iter := b.client.Scan(ctx, 0, keyPrefix+clientKey+":*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := b.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, iter.Err()
}
