package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey struct{}

var (
	defaultLogger *slog.Logger
	level         = new(slog.LevelVar)
)

func init() {
	// Default to JSON handler for structured logs
	defaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetLogger sets the global logger instance.
func SetLogger(l *slog.Logger) {
	defaultLogger = l
}

// Configure installs a handler writing to w in the given format (json or
// text) at the given level.
func Configure(w io.Writer, levelName, format string) error {
	lvl, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	level.Set(lvl)

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "json":
		defaultLogger = slog.New(slog.NewJSONHandler(w, opts))
	case "text":
		defaultLogger = slog.New(slog.NewTextHandler(w, opts))
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// SetLevel sets the log level.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Logger returns the default logger.
func Logger() *slog.Logger {
	return defaultLogger
}

// ContextWithRequestID attaches a request id picked up by the *Context helpers.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// WithContext returns a logger with context values attached.
func WithContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return defaultLogger
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return defaultLogger.With("request_id", id)
	}
	return defaultLogger
}

// Info logs at Info level.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// InfoContext logs at Info level with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).InfoContext(ctx, msg, args...)
}

// Error logs at Error level.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// ErrorContext logs at Error level with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).ErrorContext(ctx, msg, args...)
}

// Warn logs at Warn level.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// WarnContext logs at Warn level with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).WarnContext(ctx, msg, args...)
}

// Debug logs at Debug level.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// DebugContext logs at Debug level with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).DebugContext(ctx, msg, args...)
}
