package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global logger for the given environment and sets it
// as the slog default. Production emits JSON for log aggregators; everything
// else gets human-readable text at debug level.
func Setup(env string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: levelFromEnv(env),
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", "gatehouse")
	slog.SetDefault(log)

	return log
}

// levelFromEnv honors LOG_LEVEL when set, otherwise defaults per environment.
func levelFromEnv(env string) slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
