package slogutil

import (
	"io"
	"log/slog"
	"strings"
)

// LevelSilent sits above slog.LevelError; a handler at this level drops everything.
const LevelSilent = slog.Level(100)

// newLogger returns a line-format logger writing to w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewLineHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewHandler picks the handler for a logging.format value: "json" selects
// slog's JSON handler, anything else the line format.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return NewLineHandler(w, opts)
}

// OrDiscard lets constructors accept a nil logger.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.DiscardHandler)
}

// Component tags logger with the subsystem name shown as the line prefix.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return OrDiscard(logger).With(ComponentKey, name)
}

// LevelFromString maps a logging.level value. Unknown names log at info.
func LevelFromString(s string) slog.Level {
	var level slog.Level
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	if strings.EqualFold(s, "silent") || strings.EqualFold(s, "off") {
		return LevelSilent
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LevelFromVerbosity maps -v counts: none is warn, -v info, -vv debug.
// --quiet wins over any -v.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	switch {
	case quiet:
		return LevelSilent
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
