// Package logging provides structured logging infrastructure for factorysim.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"

	"github.com/meow-stack/factory-sim/internal/config"
)

// NewFromConfig creates a new slog.Logger based on configuration.
// When a log file is configured, records fan out to stderr and the file.
func NewFromConfig(cfg *config.Config, baseDir string) (*slog.Logger, io.Closer, error) {
	return newLogger(cfg, os.Stderr, cfg.LogFile(baseDir))
}

// NewForRun creates a logger that also writes to a per-run JSON log file in
// the logs directory.
func NewForRun(cfg *config.Config, baseDir, runID string) (*slog.Logger, io.Closer, error) {
	path := filepath.Join(cfg.LogsDir(baseDir), runID+".log")
	logger, closer, err := newLogger(cfg, os.Stderr, path)
	if err != nil {
		return nil, nil, err
	}
	return logger.With("run_id", runID), closer, nil
}

func newLogger(cfg *config.Config, console io.Writer, logPath string) (*slog.Logger, io.Closer, error) {
	level := parseLevel(cfg.Logging.Level)
	consoleHandler := newHandler(cfg.Logging.Format, console, level)
	if logPath == "" {
		return slog.New(consoleHandler), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	// Files are always JSON so they stay machine-readable.
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler)), file, nil
}

// NewDefault creates a default logger writing to stderr.
func NewDefault() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// NewForTest creates a silent logger for tests.
func NewForTest() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// NewWithLevel creates a logger with the specified level.
func NewWithLevel(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// parseLevel converts config log level to slog.Level.
func parseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newHandler creates a slog.Handler based on format.
func newHandler(format config.LogFormat, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch format {
	case config.LogFormatJSON:
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// WithDay returns a logger with simulated-day context.
func WithDay(logger *slog.Logger, day int, date string) *slog.Logger {
	return logger.With("day", day, "date", date)
}

// WithOperation returns a logger with operation context.
func WithOperation(logger *slog.Logger, op string) *slog.Logger {
	return logger.With("operation", op)
}
