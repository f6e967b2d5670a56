package logger

import (
	"io"
	"log/slog"
	"os"

	"sso-broker/internal/shared/config"
)

func Init(cfg *config.Config) {
	if cfg == nil {
		panic("config must be initialized before logger")
	}

	slog.SetDefault(New(os.Stdout, cfg.Logging))

	logger := slog.With("component", "logger")
	logger.Debug("Logger initialized",
		"level", cfg.Logging.Level,
		"json_format", cfg.Logging.JSONFormat,
		"environment", cfg.Server.Environment,
	)
}

// New builds a logger writing to w with the configured level and format.
func New(w io.Writer, logConfig config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(logConfig.Level)}

	var handler slog.Handler
	if logConfig.JSONFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
