package config

import "time"

// Config is the complete configuration for the Loopboard serving core.
// Values are resolved in three layers: built-in defaults, an optional YAML
// config file, and LOOPBOARD_* environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains the primary and optional replica connections.
// Both pools use the libsql driver; ReplicaURL may point at an embedded
// replica file or a second remote URL. An empty replica DSN disables read
// routing and every query runs against the primary.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Path       string `mapstructure:"path"`
	URL        string `mapstructure:"url"`
	AuthToken  string `mapstructure:"auth_token"`
	ReplicaURL string `mapstructure:"replica_url"`

	// ReplicaProbeInterval bounds how often a fallen replica is re-probed
	// before reads are sent back to it.
	ReplicaProbeInterval time.Duration `mapstructure:"replica_probe_interval"`
}

// RedisConfig contains the shared-store connection used by the rate
// limiter, the shared response cache and the realtime pub/sub bridge.
// An empty Addr disables the shared store entirely; every consumer then
// runs on its in-process fallback.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// DialTimeout and OpTimeout deliberately stay in low single-digit
	// seconds so a slow backend degrades to the fallback instead of
	// stalling the request path.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	OpTimeout   time.Duration `mapstructure:"op_timeout"`
}

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`

	// BypassPrefixes are matched against the request path before the
	// client key is derived; health checks live here.
	BypassPrefixes []string `mapstructure:"bypass_prefixes"`
}

// CacheConfig configures the HTTP response cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// MaxEntries caps the in-process store; the Redis store ignores it.
	MaxEntries int `mapstructure:"max_entries"`

	// PolicyFile optionally overrides the built-in header strategies with
	// definitions loaded from YAML.
	PolicyFile string `mapstructure:"policy_file"`
}

// PaginationConfig configures list-endpoint pagination.
type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// RealtimeConfig configures the WebSocket notification hub.
type RealtimeConfig struct {
	// TokenSecret verifies handshake bearer tokens (HS256).
	TokenSecret string `mapstructure:"token_secret"`

	// SendBuffer is the per-connection outbound queue depth; events beyond
	// it are dropped for that connection rather than blocking fan-out.
	SendBuffer int `mapstructure:"send_buffer"`

	// BridgeChannel is the pub/sub channel used for cross-process fan-out
	// when Redis is configured.
	BridgeChannel string `mapstructure:"bridge_channel"`

	// InboundRate and InboundBurst throttle client-to-server events per
	// connection.
	InboundRate  float64 `mapstructure:"inbound_rate"`
	InboundBurst int     `mapstructure:"inbound_burst"`
}

// LoggingConfig contains logging configuration.
// Level is one of: debug, info, warn, error.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
