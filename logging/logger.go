// Package logging provides a tiny abstraction over slog so the orchestrator
// and executors can depend on a minimal interface (Logger) while allowing
// callers to plug any structured logger. The default everywhere is the
// NoOpLogger, so the library is silent unless a logger is supplied.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger defines the minimal structured logging interface used throughout
// agentflow. Args follow the slog key/value convention.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NewJSONLogger creates a Logger writing JSON records to w (os.Stdout when
// w is nil) at the given level.
func NewJSONLogger(w io.Writer, level slog.Level) Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return NewSlogAdapter(slog.New(handler))
}

// NoOpLogger discards all log messages. It is the default for flows and
// executors constructed without an explicit logger.
type NoOpLogger struct{}

// Debug does nothing.
func (NoOpLogger) Debug(string, ...any) {}

// Info does nothing.
func (NoOpLogger) Info(string, ...any) {}

// Warn does nothing.
func (NoOpLogger) Warn(string, ...any) {}

// Error does nothing.
func (NoOpLogger) Error(string, ...any) {}
