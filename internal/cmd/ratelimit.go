package cmd

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/ratelimit"
)

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Inspect and reset shared rate limit state",
	Long: `Inspect and reset rate limit windows in the shared Redis store.

These commands see only the shared store. A server that has degraded to its
in-process fallback keeps its buckets in memory, where no sibling process
can reach them.`,
}

// openRateLimitBackend connects to the shared store named in the
// configuration. Admin commands have nothing to fall back to, so a missing
// or unreachable store is a hard error here.
func openRateLimitBackend(cmd *cobra.Command) (*ratelimit.RedisBackend, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Redis.Addr == "" {
		return nil, nil, errors.New("no shared store configured: set redis.addr (or LOOPBOARD_REDIS_ADDR)")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})

	backend := ratelimit.NewRedisBackend(client, cfg.Redis.OpTimeout)
	if err := backend.Ping(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return backend, func() { _ = client.Close() }, nil
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
