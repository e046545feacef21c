package internal

import (
	"io"
	"log/slog"
	"time"
)

// NewLogger builds the process logger. Production writes UTC JSON lines with
// the env attached; every other environment gets the text handler.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if env != "prod" {
		return slog.New(slog.NewTextHandler(w, opts)).With("app", "remindr")
	}

	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
		}
		return a
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With("app", "remindr", "env", env)
}

// parseLevel accepts debug, info, warn and error. Anything else is info.
func parseLevel(level string) slog.Level {
	if level == "" {
		return slog.LevelInfo
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		slog.Default().Warn("Invalid log level. Using default level: info", slog.String("value", level))
		return slog.LevelInfo
	}
	return l
}
