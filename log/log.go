// Package log is the engine's structured logger: log/slog handlers
// behind a small Logger type that adds per-subsystem children and a
// swappable process default.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Logger is a *slog.Logger whose With and Module return *Logger.
type Logger struct {
	*slog.Logger
}

var std atomic.Pointer[Logger]

func init() {
	std.Store(&Logger{slog.New(slog.NewJSONHandler(os.Stderr, nil))})
}

// Default is the logger subsystems derive their module loggers from.
func Default() *Logger { return std.Load() }

// SetDefault installs l as the process logger. Loggers already derived
// from the previous default keep writing where they did. A nil l is
// ignored.
func SetDefault(l *Logger) {
	if l != nil {
		std.Store(l)
	}
}

// FromHandler wraps an existing handler.
func FromHandler(h slog.Handler) *Logger { return &Logger{slog.New(h)} }

// Discard drops everything. Tests install it as the default.
func Discard() *Logger { return FromHandler(slog.DiscardHandler) }

// NewWriter builds a logger writing records of at least level to w as
// JSON lines or logfmt-style text. An empty format means JSON.
func NewWriter(w io.Writer, level slog.Level, format string) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "", FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case FormatText:
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("log: unknown format %q", format)
	}
	return FromHandler(h), nil
}

// ParseLevel accepts the slog level names in any case, "warning", and
// the empty string for info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil || strings.ContainsAny(s, "+-") {
		return slog.LevelInfo, fmt.Errorf("log: unknown level %q", s)
	}
	return l, nil
}

// Module tags every record of the child with module=name.
func (l *Logger) Module(name string) *Logger {
	return l.With("module", name)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}
