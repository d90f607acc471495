// Package logging builds log/slog loggers for hosts and plugins, and provides
// a dispatch observer that writes hook activity to one.
//
//	logger := logging.FromEnv(os.Stderr) // honours HOOKABLE_LOG_LEVEL
//	obs := hookable.NewObservers().Register(logging.NewObserver(logger))
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel is the environment variable read by [FromEnv].
const EnvLevel = "HOOKABLE_LOG_LEVEL"

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel maps debug, info, warn (or warning) and error to slog levels.
// Matching is case-insensitive; anything else is an error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

// ParseFormat maps "text" and "json" to a Format. The empty string is text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("logging: unknown format %q", s)
	}
}

// New creates a logger writing to w.
func New(w io.Writer, level slog.Level, format Format) *slog.Logger {
	return NewWithOptions(w, format, &slog.HandlerOptions{Level: level})
}

// NewWithOptions creates a logger writing to w with the given handler options.
func NewWithOptions(w io.Writer, format Format, opts *slog.HandlerOptions) *slog.Logger {
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// FromEnv creates a text logger writing to w at the level named by
// HOOKABLE_LOG_LEVEL, or info when it is unset or invalid.
func FromEnv(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if env := os.Getenv(EnvLevel); env != "" {
		if l, err := ParseLevel(env); err == nil {
			level = l
		}
	}
	return New(w, level, FormatText)
}
