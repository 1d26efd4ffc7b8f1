// Package logging wires slog to console and rotated file outputs based on
// configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"contactdb/internal/config"
)

// Initialize builds a logger from cfg and installs it as the slog default.
func Initialize(cfg config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

// NewLogger creates a logger with the configured outputs. Console output
// goes to stderr; file output is rotated by lumberjack, with warnings and
// errors copied to a separate errors.log.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var handlers []slog.Handler

	if cfg.Console.Enabled {
		level := parseLevel(cfg.Console.Level, cfg.Level)
		handlers = append(handlers, newHandler(os.Stderr, cfg.Format, level))
	}

	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}

		level := parseLevel(cfg.File.Level, cfg.Level)
		handlers = append(handlers,
			newHandler(rotatedFile(cfg, "contactdb.log"), cfg.Format, level))

		// Warnings and errors additionally land in their own file.
		handlers = append(handlers,
			newHandler(rotatedFile(cfg, "errors.log"), cfg.Format, slog.LevelWarn))
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), nil
	}
	return slog.New(newFanout(handlers...)), nil
}

func rotatedFile(cfg config.LoggingConfig, name string) io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    cfg.Rotate.MaxSize,
		MaxBackups: cfg.Rotate.MaxBackups,
		MaxAge:     cfg.Rotate.MaxAge,
		Compress:   cfg.Rotate.Compress,
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel resolves a per-output level, falling back to the global one.
func parseLevel(level, fallback string) slog.Level {
	if level == "" {
		level = fallback
	}
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
