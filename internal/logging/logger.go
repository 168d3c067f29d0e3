// Package logging provides the process-wide structured logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared logger instance. It defaults to a no-op logger so that
// library code can log unconditionally before InitLogger runs (tests, FFI
// hosts that never configure logging).
var Log = zap.NewNop()

// InitLogger configures the global logger. Level is one of debug, info,
// warn, error; format is "json" or "console".
func InitLogger(level, format string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	Log = logger
	return nil
}

// Sync flushes any buffered log entries. Called on shutdown.
func Sync() {
	_ = Log.Sync()
}
