// Package cmd wires the loopboard CLI: the serve command that runs the API
// server and the admin commands that inspect its shared state.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "loopboard",
	Short: "Job board API serving core",
	Long: `Loopboard serves the job board API: per-client rate limiting, cached
responses with conditional requests, paginated feeds and realtime
notifications over WebSocket.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ./config and /etc/loopboard)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	observability.InitCLILogger("loopboard", verbose)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/loopboard")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// LOOPBOARD_SERVER_PORT overrides server.port, and so on.
	viper.SetEnvPrefix("LOOPBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
		}
	} else if verbose {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		} else {
			observability.CLILogger.Warn("Error reading config file", zap.Error(err))
		}
	}

	setDefaults()
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")

	// Database defaults
	viper.SetDefault("database.driver", "libsql")
	viper.SetDefault("database.path", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.auth_token", "")
	viper.SetDefault("database.replica_url", "")
	viper.SetDefault("database.replica_probe_interval", "15s")

	// Redis defaults (empty addr disables the shared store)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dial_timeout", "2s")
	viper.SetDefault("redis.op_timeout", "2s")

	// Rate limit defaults
	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.window", "1m")
	viper.SetDefault("ratelimit.bypass_prefixes", []string{"/health", "/metrics"})

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_entries", 4096)
	viper.SetDefault("cache.policy_file", "")

	// Pagination defaults
	viper.SetDefault("pagination.default_limit", 20)
	viper.SetDefault("pagination.max_limit", 100)

	// Realtime defaults (empty secret disables the websocket handshake)
	viper.SetDefault("realtime.token_secret", "")
	viper.SetDefault("realtime.send_buffer", 64)
	viper.SetDefault("realtime.bridge_channel", "loopboard:events")
	viper.SetDefault("realtime.inbound_rate", 20)
	viper.SetDefault("realtime.inbound_burst", 40)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
}
