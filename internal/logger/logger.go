package logger

import (
	"log/slog"
	"os"
	"strings"

	"bank-reconciliation-engine/internal/config"
)

// New creates and configures a slog.Logger emitting JSON to stdout.
func New(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	logger = logger.With("app", cfg.Application.Name, "env", cfg.Application.Env)

	return logger
}
