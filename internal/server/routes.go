package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/pagination"
	"github.com/loopboard/loopboard/internal/realtime"
	"github.com/loopboard/loopboard/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	health := handlers.NewHealthManager(handlers.AppVersion)
	if s.deps.DB != nil {
		health.RegisterChecker("database", handlers.CheckFunc(func(ctx context.Context) error {
			return s.deps.DB.Write().PingContext(ctx)
		}))
	}
	if s.deps.Redis != nil {
		health.RegisterChecker("redis", handlers.CheckFunc(func(ctx context.Context) error {
			return s.deps.Redis.Ping(ctx).Err()
		}))
	}

	// Standard health endpoints
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint
	if s.deps.Metrics != nil && s.deps.Config.Metrics.Enabled {
		s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	s.registerJobsRoutes()
	s.registerRealtimeRoutes()
}

// registerJobsRoutes mounts the jobs feed. Reads go through the response
// cache middleware; /api/jobs/list is an alias kept for older clients.
func (s *Server) registerJobsRoutes() {
	if s.deps.Feed == nil {
		s.logger.Debug("Jobs endpoints disabled (no database configured)")
		return
	}

	jobs := handlers.NewJobsHandler(s.deps.Feed, s.deps.APICache, pagination.Defaults{
		Limit:    s.deps.Config.Pagination.DefaultLimit,
		MaxLimit: s.deps.Config.Pagination.MaxLimit,
	}, s.logger)

	s.router.Group(func(r chi.Router) {
		if s.deps.APICache != nil {
			r.Use(s.deps.APICache.Middleware(cache.StrategyPublicList))
		}
		r.Get("/api/jobs", jobs.List)
		r.Get("/api/jobs/list", jobs.List)
	})
	s.router.Post("/api/jobs", jobs.Create)
}

// registerRealtimeRoutes mounts the websocket endpoint and the internal
// event emission endpoint when a hub was configured.
func (s *Server) registerRealtimeRoutes() {
	if s.deps.Hub == nil {
		s.logger.Debug("Websocket endpoint disabled (no hub configured)")
		return
	}

	s.router.Get("/ws", realtime.Handler(s.deps.Hub, s.deps.Verifier, s.deps.Config.Realtime, s.logger))

	events := handlers.NewEventsHandler(s.deps.Hub, s.logger)
	s.router.Post("/internal/events", events.Emit)

	s.logger.Info("Realtime endpoints enabled",
		zap.String("websocket", "/ws"),
		zap.String("emit", "/internal/events"))
}
