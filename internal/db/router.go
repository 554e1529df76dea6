package db

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/observability"
)

// Router hands out database pools: writes always hit the primary, reads
// prefer the replica when one is configured and its last health probe passed.
// Replica trouble falls back to the primary for the affected reads; it never
// fails a request.
type Router struct {
	primary *sql.DB
	replica *sql.DB

	probeInterval time.Duration
	probeTimeout  time.Duration
	logger        *zap.Logger
	metrics       *observability.Metrics
	clock         func() time.Time

	mu           sync.Mutex
	lastProbe    time.Time
	healthy      bool
	wasUnhealthy bool
}

// OpenRouter builds the primary pool, and the replica pool when a replica
// URL is configured. A replica that cannot even be opened is logged and
// dropped; the router then serves every read from the primary.
func OpenRouter(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger, metrics *observability.Metrics) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn, err := primaryDSN(cfg)
	if err != nil {
		return nil, err
	}
	primary, err := openPool(ctx, dsn)
	if err != nil {
		return nil, err
	}

	router := NewRouter(primary, nil, cfg.ReplicaProbeInterval, logger, metrics)

	replicaDSN, err := replicaDSN(cfg)
	if err != nil {
		_ = primary.Close()
		return nil, err
	}
	if replicaDSN != "" {
		replica, err := openPool(ctx, replicaDSN)
		if err != nil {
			logger.Warn("replica pool unavailable, reads will use the primary",
				zap.Error(err))
		} else {
			router.replica = replica
			router.healthy = true
			logger.Info("read replica configured")
		}
	}

	router.publishHealth()
	return router, nil
}

// NewRouter wires a router around existing pools. replica may be nil.
func NewRouter(primary, replica *sql.DB, probeInterval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if probeInterval <= 0 {
		probeInterval = 15 * time.Second
	}
	return &Router{
		primary:       primary,
		replica:       replica,
		probeInterval: probeInterval,
		probeTimeout:  2 * time.Second,
		logger:        logger,
		metrics:       metrics,
		clock:         time.Now,
		healthy:       replica != nil,
	}
}

// Write returns the primary pool.
func (r *Router) Write() *sql.DB {
	return r.primary
}

// Read returns the replica pool while it is healthy, the primary otherwise.
// Health is cached between probes so the hot path stays ping-free.
func (r *Router) Read(ctx context.Context) *sql.DB {
	if r.replica == nil {
		return r.primary
	}

	if r.replicaHealthy(ctx) {
		return r.replica
	}

	if r.metrics != nil {
		r.metrics.ReplicaFallbacks.Inc()
	}
	return r.primary
}

// Close releases both pools.
func (r *Router) Close() error {
	var firstErr error
	if r.replica != nil {
		if err := r.replica.Close(); err != nil {
			firstErr = err
		}
	}
	if r.primary != nil {
		if err := r.primary.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) replicaHealthy(ctx context.Context) bool {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastProbe) < r.probeInterval {
		return r.healthy
	}
	r.lastProbe = now

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	err := r.replica.PingContext(probeCtx)

	r.healthy = err == nil
	if err != nil && !r.wasUnhealthy {
		r.wasUnhealthy = true
		r.logger.Warn("read replica unhealthy, routing reads to primary",
			zap.Error(err))
	}
	if err == nil && r.wasUnhealthy {
		r.wasUnhealthy = false
		r.logger.Info("read replica recovered")
	}
	r.publishHealthLocked()

	return r.healthy
}

func (r *Router) publishHealth() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishHealthLocked()
}

func (r *Router) publishHealthLocked() {
	if r.metrics == nil {
		return
	}
	if r.replica != nil && r.healthy {
		r.metrics.ReplicaHealthy.Set(1)
	} else {
		r.metrics.ReplicaHealthy.Set(0)
	}
}
