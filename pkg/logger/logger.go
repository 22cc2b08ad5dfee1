// Package logger wraps log/slog the way the rest of this codebase expects
// to use it: a process-wide default initialized from a level name, plus
// named component loggers for the mux, device layer and song orchestration.
package logger

import (
	"fmt"
	"log/slog"
	"os"
)

var global *slog.Logger

// Init configures the default logger at the given level ("debug", "info",
// "warn", "error") writing text-formatted records to stderr so stdout stays
// free for the interactive prompt and command output.
func Init(level string) error {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	global = slog.New(handler)
	slog.SetDefault(global)
	return nil
}

// Get returns the process-wide logger, falling back to slog.Default before
// Init has run (e.g. in tests that never call Init).
func Get() *slog.Logger {
	if global == nil {
		return slog.Default()
	}
	return global
}

// For returns a logger scoped to a named component (e.g. "mux", "device",
// "song"), tagging every record so multiplexed logs stay attributable.
func For(component string) *slog.Logger {
	return Get().With(slog.String("component", component))
}
