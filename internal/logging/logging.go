// Package logging provides the process-wide structured logger.
//
// All server components log through this package so that encoder and level
// configuration happen exactly once, at startup.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string

	// Format is "json" or "console".
	Format string
}

var logger = zap.NewNop()

// Init builds the global logger. It must be called before any other
// function in this package; components created earlier log nowhere.
func Init(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "", "json":
		zcfg = zap.NewProductionConfig()
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logger = l
	return nil
}

// L returns the global logger.
func L() *zap.Logger {
	return logger
}

// Named returns a named child of the global logger.
func Named(name string) *zap.Logger {
	return logger.Named(name)
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = logger.Sync()
}
