// Package logger provides a structured, module-aware logging system built on Go's log/slog.
//
// Components receive a Logger and scope it with Module:
//
//	log := logger.Global().Module("stations")
//	log.Info("Station table loaded",
//	    logger.String("source", "primary"),
//	    logger.Int("stations", 412))
//
// Console output is human-readable text rendered by tint; file output is JSON
// for machine parsing. Tests can capture output with NewSlogLogger:
//
//	buf := &bytes.Buffer{}
//	testLogger := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)
//
// All logger implementations are safe for concurrent use.
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field.
// Keys are interned using unique.Make() so repeated keys share one allocation.
type Field struct {
	Key   string
	Value any
}

// internKey returns an interned version of the key string.
func internKey(key string) string {
	return unique.Make(key).Value()
}

// Pre-interned common keys
var (
	errorKey   = internKey("error")
	moduleKey  = internKey("module")
	traceIDKey = internKey("trace_id")
)

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	// Leveled logging methods
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Context-aware logging
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// String creates a string field for structured logging.
//
// Example:
//
//	log.Info("Primary source selected",
//	    logger.String("path", cachePath),
//	    logger.String("encoding", "cp1252"))
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field for structured logging.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field for structured logging.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a 64-bit float field for structured logging.
// Values are rounded to three decimals in the output.
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field for structured logging.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field for structured logging.
//
// The field key is always "error". A nil error yields a nil value.
//
// Example:
//
//	if err := store.Reload(ctx); err != nil {
//	    log.Error("Reload failed",
//	        logger.Error(err),
//	        logger.String("operation", "reload"))
//	}
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field, rendered as a string such as "1.5s".
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Time creates a time field for structured logging.
func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

// Strings creates a field holding a list of strings.
func Strings(key string, values []string) Field {
	return Field{Key: internKey(key), Value: values}
}

// Any creates a field with any value for structured logging.
// Prefer the type-specific constructors for simple values.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
