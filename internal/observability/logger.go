package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// CLILogger is used for CLI commands (console profile)
	CLILogger *zap.Logger

	// ServerLogger is used for the HTTP server (JSON profile)
	ServerLogger *zap.Logger
)

// InitCLILogger initializes the CLI logger with a human-readable console profile.
func InitCLILogger(serviceName string, verbose bool) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       true,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig:     encCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		exitStderr("Failed to initialize CLI logger", err)
	}

	CLILogger = logger.Named(serviceName)
}

// InitServerLogger initializes the server logger with a structured JSON profile.
// Every line carries the service name so aggregated logs stay attributable.
func InitServerLogger(serviceName string, logLevel string) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLogLevel(logLevel))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build(zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		exitStderr("Failed to initialize server logger", err)
	}

	ServerLogger = logger
}

// parseLogLevel converts a config log level string to a zap level.
func parseLogLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "debug", "trace":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// exitStderr is a local helper for logger initialization failures, which happen
// before any logger is available.
func exitStderr(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}
	os.Exit(1)
}
