// Package server assembles the HTTP surface: middleware chain, route table
// and the lifecycle of the listener. All service objects are constructed by
// the caller and handed in through Dependencies; nothing here reaches for
// package-level state.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/apierrors"
	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/db"
	"github.com/loopboard/loopboard/internal/observability"
	"github.com/loopboard/loopboard/internal/ratelimit"
	"github.com/loopboard/loopboard/internal/realtime"
	servermw "github.com/loopboard/loopboard/internal/server/middleware"
)

// Dependencies carries the service objects the router serves. Optional
// fields may be nil; the routes that need them are then not mounted, so a
// deployment without a database still serves health, version and metrics.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Limiter  *ratelimit.Limiter
	APICache *cache.APIResponseCache
	DB       *db.Router
	Feed     *db.Feed
	Hub      *realtime.Hub
	Verifier *realtime.TokenVerifier
	Redis    *redis.Client
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	logger *zap.Logger
	deps   Dependencies
}

// New creates a new HTTP server instance
func New(deps Dependencies) *Server {
	if deps.Config == nil {
		deps.Config = &config.Config{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Standard chi middleware
	r.Use(chimw.RealIP)

	// Custom middleware in order (RequestID → Metrics → Recovery → RateLimit)
	r.Use(servermw.RequestID)
	if deps.Metrics != nil {
		r.Use(servermw.RequestMetrics(deps.Metrics))
	}
	r.Use(servermw.Recovery(deps.Metrics))
	if deps.Limiter != nil {
		r.Use(ratelimit.Middleware(deps.Limiter, deps.Config.RateLimit.BypassPrefixes))
	}

	// Unmatched routes answer with the standard error envelope.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apierrors.RespondWithEnvelope(w, req,
			apierrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apierrors.RespondWithEnvelope(w, req,
			apierrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		cfg:    deps.Config.Server,
		logger: deps.Logger,
		deps:   deps,
	}

	s.registerRoutes()

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  timeoutOr(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: timeoutOr(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  timeoutOr(s.cfg.IdleTimeout, 120*time.Second),
	}

	s.logger.Info("Starting HTTP server",
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port for testing
func (s *Server) Port() int {
	return s.cfg.Port
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
