// Package log provides the structured logging layer of scigolab.
//
// Two backends are wired in. SetupLogger installs a JSON log/slog default
// handler for the HTTP server and CLI, wrapped so that cockroachdb/errors
// stack traces are emitted next to the error attribute. The ML packages
// (experiment, artifacts, service) log through the small Logger interface
// below, backed by zerolog, so that a component can be given a named logger
// and tests can swap in a TestLogger.
//
//	logger := log.GetLoggerWithName("experiment").With(
//	    log.ExperimentIDKey, 12,
//	    log.AlgorithmIDKey, "ridge_regression",
//	)
//	logger.Info("fit finished", log.SamplesKey, 120, log.DurationMsKey, 42)
package log

import (
	"context"
)

// Logger is a minimal slog-style structured logger.
type Logger interface {
	// Debug logs a debug-level message with optional key/value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key/value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key/value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it is
	// attached under ErrAttrKey.
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ToLevel converts a level name to Level. It panics on an unknown name, as
// ToLogLevel does.
func ToLevel(level string) Level {
	return Level(ToLogLevel(level))
}

// LoggerProvider creates loggers for named components.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
