package config

import (
	"io"
	"log/slog"
	"os"
)

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`

	// Log format: json, text
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// SlogLevel maps Level to a slog level. Unknown values map to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
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

// NewLogger builds a logger writing to stderr.
func NewLogger(c LoggingConfig) *slog.Logger {
	return NewLoggerTo(os.Stderr, c)
}

// NewLoggerTo builds a logger writing to w.
func NewLoggerTo(w io.Writer, c LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}

	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}
