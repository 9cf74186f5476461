// Package telemetry provides the structured logger used across every
// component spec.md §7 says should "log and continue" on a recoverable
// failure (adapter errors, batch write failures, compaction races, corrupt
// embedded metadata). It replaces the teacher's scattered "// Log error"
// comments over discarded errors (internal/memory/service.go,
// internal/inference/client.go) with real slog records, grounded on
// brokle-ai-brokle's pkg/logging/logger.go: a colorized tint.Handler for
// interactive/text output, a plain JSON handler otherwise.
package telemetry

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// New builds a *slog.Logger per format ("text" for a colorized tint
// handler, "json" for stdlib's JSON handler; anything else falls back to
// JSON) at the given level, writing to stderr.
func New(levelStr, format string) *slog.Logger {
	level := ParseLevel(levelStr)
	format = strings.ToLower(strings.TrimSpace(format))

	var handler slog.Handler
	switch format {
	case "text":
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		})
	default:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// ParseLevel converts a config string into a slog.Level, defaulting to
// Info for anything unrecognized.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
