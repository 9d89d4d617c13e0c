package slogutil

import (
	"errors"
	"io"
	"log/slog"

	"devjourney/internal/config"
)

// LoggerFactory turns the [logging] config plus -v/--quiet into loggers
// and owns any log files it opens.
type LoggerFactory struct {
	cfg      config.LoggingConfig
	cliLevel slog.Level
	cliSet   bool
	files    []io.Closer
}

// NewLoggerFactory creates a factory. When cliSet is true, cliLevel
// replaces logging.level on the console.
func NewLoggerFactory(cfg *config.Config, cliLevel slog.Level, cliSet bool) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{cfg: cfg.Logging, cliLevel: cliLevel, cliSet: cliSet}
}

func (f *LoggerFactory) ConsoleLevel() slog.Level {
	if f.cliSet {
		return f.cliLevel
	}
	return LevelFromString(f.cfg.Level)
}

// fileLevel never rises above info so the file keeps a run history even
// when the console is quiet.
func (f *LoggerFactory) fileLevel() slog.Level {
	return min(LevelFromString(f.cfg.Level), slog.LevelInfo)
}

// CLILogger logs to stderr and, if logging.file is set, to that file too.
// An unopenable file is reported once on stderr and then ignored.
func (f *LoggerFactory) CLILogger(stderr io.Writer) *slog.Logger {
	console := NewHandler(stderr, f.cfg.Format, f.ConsoleLevel())
	if f.cfg.File == "" {
		return slog.New(console)
	}

	w, err := OpenLogFile(f.cfg.File, f.cfg.MaxSize, f.cfg.MaxBackups)
	if err != nil {
		logger := slog.New(console)
		logger.Warn("File logging disabled", "path", f.cfg.File, "error", err)
		return logger
	}
	f.files = append(f.files, w)
	return slog.New(NewTeeHandler(console, NewHandler(w, f.cfg.Format, f.fileLevel())))
}

// Close closes the log files opened by CLILogger.
func (f *LoggerFactory) Close() error {
	var errs []error
	for _, c := range f.files {
		errs = append(errs, c.Close())
	}
	f.files = nil
	return errors.Join(errs...)
}
