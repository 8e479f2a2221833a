// Package logging sets up the structured logger for the SeriesNet client.
//
// The terminal UI owns stdout, so records go to a file. Each subsystem gets a
// child logger tagged with a component attribute.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Component names used across the client.
const (
	ComponentApp   = "app"
	ComponentAPI   = "api"
	ComponentCache = "cache"
	ComponentUI    = "ui"
	ComponentMock  = "mock"
)

// Logger wraps a slog.Logger together with the file backing it.
type Logger struct {
	*slog.Logger
	path   string
	closer io.Closer
}

// New opens (or creates) the log file at path and returns a text logger at
// the given level.
func New(path, level string) (*Logger, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Discard(), nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &Logger{
		Logger: NewWriter(file, level),
		path:   trimmed,
		closer: file,
	}, nil
}

// NewWriter returns a text logger writing to w.
func NewWriter(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Path returns the file the logger writes to, or "" for a discard logger.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *slog.Logger {
	if l == nil || l.Logger == nil {
		return Discard().Logger
	}
	return l.With(slog.String("component", name))
}

// Close releases the log file.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
