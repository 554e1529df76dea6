// Package ratelimit enforces per-client fixed-window request limits. A shared
// Redis backend keeps sibling processes in agreement; an in-process backend
// with identical semantics takes over when the shared store is unreachable.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Backend increments the counter for one window bucket and reports the new
// count. The bucket key already encodes the client and the window start, so
// backends never reason about window boundaries themselves.
type Backend interface {
	Incr(ctx context.Context, bucketKey string, ttl time.Duration) (int64, error)
	Name() string
}

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

const keyPrefix = "ratelimit:"

// BucketKey builds the storage key for a client's current window.
func BucketKey(clientKey string, windowStart int64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, clientKey, windowStart)
}

// ParseBucketKey splits a storage key back into client key and window start.
// The client key may itself contain colons (IPv6), so the window start is
// taken from the last segment.
func ParseBucketKey(bucketKey string) (clientKey string, windowStart int64, err error) {
	rest, ok := strings.CutPrefix(bucketKey, keyPrefix)
	if !ok {
		return "", 0, fmt.Errorf("not a rate limit bucket key: %q", bucketKey)
	}
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("malformed bucket key: %q", bucketKey)
	}
	windowStart, err = strconv.ParseInt(rest[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed window start in %q: %w", bucketKey, err)
	}
	return rest[:idx], windowStart, nil
}
