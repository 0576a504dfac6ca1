// Package logging configures the process-wide slog logger and provides
// attribute helpers for consistent key naming.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys.
const (
	KeyRepo         = "repo"
	KeyNumber       = "number"
	KeyInstallation = "installation_id"
	KeyEvent        = "event"
	KeyDelivery     = "delivery_id"
	KeyError        = "error"
)

// Output formats accepted by Setup.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", level)
	}
}

// New builds a logger writing to w with the given level and format.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", FormatText:
		handler = slog.NewTextHandler(w, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q, must be one of: text, json", format)
	}

	return slog.New(handler), nil
}

// Setup builds a logger with New and installs it as the slog default.
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	logger, err := New(w, level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}
