package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	// Embedded timezone database so LoadLocation works on hosts without one.
	_ "time/tzdata"

	"github.com/lmittmann/tint"
)

const (
	// traceLevelValue is slog.Level for TRACE level (below Debug which is -4)
	traceLevelValue = slog.Level(-8)

	// floatPrecisionRatio rounds floats to 3 decimal places in log output
	floatPrecisionRatio = 1000.0
)

// Global logger instance
var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal sets the global CentralLogger instance.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the global CentralLogger instance.
// If no logger has been set via SetGlobal, a console logger at info level is created.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger != nil {
		return globalLogger
	}

	globalLogger = &CentralLogger{
		config:       &LoggingConfig{Level: DefaultLogLevel, Format: FormatText},
		timezone:     time.Local,
		defaultLevel: slog.LevelInfo,
		moduleLevels: make(map[string]slog.Level),
		baseHandler:  newConsoleHandler(os.Stderr, FormatText, slog.LevelInfo, false),
	}
	return globalLogger
}

// loggerContextKey is a typed key for context values
type loggerContextKey struct{ name string }

// TraceIDKey is the context key for trace IDs. Use WithTraceID() to set values.
var TraceIDKey = loggerContextKey{"trace_id"}

// WithTraceID returns a new context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// CentralLogger owns the output handlers and hands out module loggers
type CentralLogger struct {
	config       *LoggingConfig
	timezone     *time.Location
	baseHandler  slog.Handler
	file         *os.File
	defaultLevel slog.Level
	moduleLevels map[string]slog.Level
	mu           sync.RWMutex
}

// NewCentralLogger creates a centralized logger writing to stderr and,
// when configured, a JSON log file.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	return newCentralLogger(cfg, os.Stderr)
}

func newCentralLogger(cfg *LoggingConfig, console io.Writer) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	var tz *time.Location
	switch cfg.Timezone {
	case "", "Local":
		tz = time.Local
	default:
		var err error
		tz, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
	}

	cl := &CentralLogger{
		config:       cfg,
		timezone:     tz,
		defaultLevel: parseLogLevel(cfg.Level),
		moduleLevels: make(map[string]slog.Level),
	}
	for module, levelStr := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(levelStr)
	}

	// Handlers accept everything down to trace; moduleLogger does the level gating.
	handlers := []slog.Handler{newConsoleHandler(console, cfg.Format, traceLevelValue, cfg.NoColor)}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cl.file = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: traceLevelValue}))
	}

	if len(handlers) == 1 {
		cl.baseHandler = handlers[0]
	} else {
		cl.baseHandler = fanoutHandler(handlers)
	}

	return cl, nil
}

// newConsoleHandler returns a tint text handler or a JSON handler
func newConsoleHandler(w io.Writer, format string, level slog.Level, noColor bool) slog.Handler {
	if strings.EqualFold(format, FormatJSON) {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	level := cl.defaultLevel
	if l, ok := cl.moduleLevels[name]; ok {
		level = l
	}

	return &moduleLogger{
		module: name,
		logger: slog.New(cl.baseHandler),
		level:  level,
	}
}

// Close flushes and closes the log file, if any
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.file == nil {
		return nil
	}
	err := errors.Join(cl.file.Sync(), cl.file.Close())
	cl.file = nil
	return err
}

// Flush syncs the log file to disk
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if cl.file == nil {
		return nil
	}
	return cl.file.Sync()
}

// NewSlogLogger creates a Logger writing JSON to w. Intended for tests and tools.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if tz == nil {
		tz = time.UTC
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: traceLevelValue,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.TimeValue(a.Value.Time().In(tz))
			}
			return a
		},
	})
	return &moduleLogger{
		logger: slog.New(handler),
		level:  parseSlogLevel(level),
	}
}

// parseLogLevel converts string level to slog.Level
func parseLogLevel(level string) slog.Level {
	return parseSlogLevel(LogLevel(strings.ToLower(strings.TrimSpace(level))))
}

func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn, "warning":
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// moduleLogger implements Logger interface for a specific module
type moduleLogger struct {
	module string
	logger *slog.Logger
	level  slog.Level
	fields []Field
}

// Module creates a sub-module logger with its own copy of fields
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}

	module := name
	if m.module != "" {
		module = m.module + "." + name
	}

	return &moduleLogger{
		module: module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Clone(m.fields),
	}
}

// Trace logs a trace message (most verbose level)
func (m *moduleLogger) Trace(msg string, fields ...Field) {
	m.logAt(traceLevelValue, msg, fields)
}

// Debug logs a debug message
func (m *moduleLogger) Debug(msg string, fields ...Field) {
	m.logAt(slog.LevelDebug, msg, fields)
}

// Info logs an info message
func (m *moduleLogger) Info(msg string, fields ...Field) {
	m.logAt(slog.LevelInfo, msg, fields)
}

// Warn logs a warning message
func (m *moduleLogger) Warn(msg string, fields ...Field) {
	m.logAt(slog.LevelWarn, msg, fields)
}

// Error logs an error message
func (m *moduleLogger) Error(msg string, fields ...Field) {
	m.logAt(slog.LevelError, msg, fields)
}

// Log logs a message with explicit level
func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.logAt(parseSlogLevel(level), msg, fields)
}

// With returns a new logger with accumulated fields
func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}

	return &moduleLogger{
		module: m.module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Concat(m.fields, fields),
	}
}

// WithContext returns a logger carrying the context's trace ID, if any
func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil || ctx == nil {
		return m
	}

	traceID, _ := ctx.Value(TraceIDKey).(string)
	if traceID == "" {
		return m
	}

	return m.With(String(traceIDKey, traceID))
}

// Flush is a no-op; the CentralLogger owns file handles
func (m *moduleLogger) Flush() error {
	return nil
}

func (m *moduleLogger) logAt(level slog.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for i := range m.fields {
		attrs = append(attrs, fieldToAttr(m.fields[i]))
	}
	for i := range fields {
		attrs = append(attrs, fieldToAttr(fields[i]))
	}

	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// roundFloat rounds a float64 to 3 decimal places for cleaner output
func roundFloat(val float64) float64 {
	return math.Round(val*floatPrecisionRatio) / floatPrecisionRatio
}

// fieldToAttr converts Field to slog.Attr
func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, RedactSensitiveData(v))
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, roundFloat(v))
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}

// fanoutHandler writes each record to every handler
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h {
		if handler.Enabled(ctx, record.Level) {
			errs = append(errs, handler.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithGroup(name)
	}
	return out
}
