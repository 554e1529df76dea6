package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/observability"
)

// Limiter enforces N requests per window per client key. The backend is
// chosen once at construction: Redis when a client is supplied and reachable,
// otherwise the in-process fallback. A runtime failure of the shared store
// degrades to the fallback permanently and logs once; a check never fails the
// request and never fails open with an error.
type Limiter struct {
	limit    int64
	window   time.Duration
	fallback *MemoryBackend
	logger   *zap.Logger
	metrics  *observability.Metrics
	clock    func() time.Time

	mu          sync.RWMutex
	backend     Backend
	degradeOnce sync.Once
}

// Option adjusts limiter construction, mainly for tests.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) { l.clock = clock }
}

// New builds a limiter allowing limit requests per window. redisClient may be
// nil, which selects the in-process backend outright.
func New(limit int64, window time.Duration, redisClient *redis.Client, opTimeout time.Duration, logger *zap.Logger, metrics *observability.Metrics, opts ...Option) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Window arithmetic runs in whole seconds; anything shorter would
	// bucket by a zero divisor.
	if window < time.Second {
		window = time.Second
	}

	l := &Limiter{
		limit:   limit,
		window:  window,
		logger:  logger,
		metrics: metrics,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.fallback = NewMemoryBackend(l.clock)
	l.backend = l.fallback

	if redisClient != nil {
		shared := NewRedisBackend(redisClient, opTimeout)
		if err := shared.Ping(context.Background()); err != nil {
			logger.Warn("shared rate limit store unreachable at startup, using in-process limiter",
				zap.Error(err))
		} else {
			l.backend = shared
			logger.Info("rate limiter using shared store backend")
		}
	} else {
		logger.Info("rate limiter using in-process backend")
	}

	return l
}

// Limit returns the configured request budget per window.
func (l *Limiter) Limit() int64 { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// BackendName reports which backend is currently serving checks.
func (l *Limiter) BackendName() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backend.Name()
}

// Check counts one request for the client and decides whether it may proceed.
// The request is allowed while the window count stays within the limit.
func (l *Limiter) Check(ctx context.Context, clientKey string) Decision {
	now := l.clock()
	windowSeconds := int64(l.window / time.Second)
	windowStart := now.Unix() - now.Unix()%windowSeconds
	bucketKey := BucketKey(clientKey, windowStart)

	backend := l.current()
	count, err := backend.Incr(ctx, bucketKey, l.window)
	if err != nil {
		l.degrade(err)
		backend = l.fallback
		count, _ = backend.Incr(ctx, bucketKey, l.window)
	}

	decision := Decision{
		Allowed:    count <= l.limit,
		Count:      count,
		RetryAfter: time.Duration(windowStart+windowSeconds-now.Unix()) * time.Second,
	}

	if l.metrics != nil {
		outcome := "allowed"
		if !decision.Allowed {
			outcome = "limited"
		}
		l.metrics.RateLimitDecisions.WithLabelValues(backend.Name(), outcome).Inc()
	}

	return decision
}

func (l *Limiter) current() Backend {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backend
}

// degrade swaps in the in-process fallback for the rest of the process
// lifetime. Logged once no matter how many requests hit the failure.
func (l *Limiter) degrade(err error) {
	l.degradeOnce.Do(func() {
		l.mu.Lock()
		l.backend = l.fallback
		l.mu.Unlock()
		l.logger.Warn("shared rate limit store failed, degrading to in-process limiter",
			zap.Error(err))
	})
}
