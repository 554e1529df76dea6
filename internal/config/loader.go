// Package config provides centralized configuration management for the
// Loopboard serving core. Defaults are registered on the shared viper
// instance by the CLI layer; Load decodes whatever viper has resolved
// (defaults, config file, LOOPBOARD_* environment) into a typed Config.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Load decodes the resolved viper state into a typed Config.
// Safe to call multiple times (e.g. after a config reload).
func Load() (*Config, error) {
	cfg := &Config{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// validate rejects configurations that cannot produce a working service.
// Soft problems (missing replica, missing redis) are handled downstream by
// fallbacks and never fail startup.
func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Requests <= 0 {
			return fmt.Errorf("ratelimit.requests must be positive, got %d", cfg.RateLimit.Requests)
		}
		if cfg.RateLimit.Window < time.Second {
			return fmt.Errorf("ratelimit.window must be at least one second, got %s", cfg.RateLimit.Window)
		}
	}

	if cfg.Pagination.MaxLimit > 0 && cfg.Pagination.DefaultLimit > cfg.Pagination.MaxLimit {
		return fmt.Errorf("pagination.default_limit %d exceeds max_limit %d",
			cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit)
	}

	if strings.TrimSpace(cfg.Database.Driver) == "" {
		cfg.Database.Driver = "libsql"
	}

	return nil
}
