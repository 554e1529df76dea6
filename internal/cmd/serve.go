package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/db"
	"github.com/loopboard/loopboard/internal/observability"
	"github.com/loopboard/loopboard/internal/ratelimit"
	"github.com/loopboard/loopboard/internal/realtime"
	"github.com/loopboard/loopboard/internal/server"
	"github.com/loopboard/loopboard/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Optional dependencies degrade instead of failing startup: without Redis the
rate limiter and response cache fall back to in-process stores, without a
database the jobs endpoints are not mounted, and without a realtime token
secret the websocket endpoint answers 503.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		observability.InitServerLogger("loopboard", cfg.Logging.Level)
		logger := observability.ServerLogger
		defer func() { _ = logger.Sync() }()

		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

		logger.Info("Initializing server",
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))

		metrics := observability.NewMetrics()

		var redisClient *redis.Client
		if cfg.Redis.Addr != "" {
			redisClient = redis.NewClient(&redis.Options{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			defer redisClient.Close() // nolint:errcheck // shutdown path
		}

		deps := server.Dependencies{
			Config:  cfg,
			Logger:  logger,
			Metrics: metrics,
			Redis:   redisClient,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if strings.TrimSpace(cfg.Database.Path) != "" || strings.TrimSpace(cfg.Database.URL) != "" {
			router, err := db.OpenRouter(ctx, cfg.Database, logger, metrics)
			if err != nil {
				return err
			}
			defer router.Close() // nolint:errcheck // shutdown path

			if err := db.Migrate(ctx, router.Write()); err != nil {
				return err
			}

			deps.DB = router
			deps.Feed = db.NewFeed(router)
		} else {
			logger.Info("No database configured, jobs endpoints disabled")
		}

		if cfg.RateLimit.Enabled {
			deps.Limiter = ratelimit.New(int64(cfg.RateLimit.Requests), cfg.RateLimit.Window,
				redisClient, cfg.Redis.OpTimeout, logger, metrics)
		}

		if cfg.Cache.Enabled {
			policy := cache.NewHeaderPolicy()
			if cfg.Cache.PolicyFile != "" {
				overrides, err := cache.LoadPolicyFile(cfg.Cache.PolicyFile)
				if err != nil {
					return err
				}
				policy.Merge(overrides)
				logger.Info("Loaded cache policy overrides",
					zap.String("file", cfg.Cache.PolicyFile),
					zap.Int("strategies", len(overrides)))
			}

			responseCache := cache.NewResponseCache(redisClient, cfg.Redis.OpTimeout,
				cfg.Cache.MaxEntries, logger, metrics, nil)
			deps.APICache = cache.NewAPIResponseCache(responseCache, policy, metrics)
		}

		hub := realtime.NewHub(logger, metrics)
		deps.Hub = hub
		deps.Verifier = realtime.NewTokenVerifier(cfg.Realtime.TokenSecret)
		if deps.Verifier == nil {
			logger.Warn("No realtime token secret configured, websocket handshakes will be refused")
		}
		if redisClient != nil {
			bridge := realtime.NewBridge(redisClient, cfg.Realtime.BridgeChannel,
				cfg.Redis.OpTimeout, logger)
			hub.AttachBridge(bridge)
			go bridge.Run(ctx, hub.ApplyRemote)
		}

		srv := server.New(deps)

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		select {
		case err := <-errChan:
			return err
		case <-ctx.Done():
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
			return err
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
