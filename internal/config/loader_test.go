package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Requests = 100
	cfg.RateLimit.Window = time.Minute
	return cfg
}

func TestValidateRejectsBrokenConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "invalid server port"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"zero requests", func(c *Config) { c.RateLimit.Requests = 0 }, "ratelimit.requests"},
		{"sub-second window", func(c *Config) { c.RateLimit.Window = 500 * time.Millisecond }, "at least one second"},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, "at least one second"},
		{"window ignored when limiter disabled", func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Window = 0
		}, ""},
		{"default limit above max", func(c *Config) {
			c.Pagination.DefaultLimit = 200
			c.Pagination.MaxLimit = 100
		}, "exceeds max_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateDefaultsBlankDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "  "

	require.NoError(t, validate(cfg))
	assert.Equal(t, "libsql", cfg.Database.Driver)
}
