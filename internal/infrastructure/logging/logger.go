// Package logging provides structured logging infrastructure for the medsync
// engine. It wraps Go's standard log/slog package with context-aware logging
// and sync-specific log attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// ItemIDKey is the context key for sync item IDs.
	ItemIDKey contextKey = "item_id"
	// ItemTypeKey is the context key for sync item types.
	ItemTypeKey contextKey = "item_type"
	// WorkerIDKey is the context key for delivery worker IDs.
	WorkerIDKey contextKey = "worker_id"
	// EntityIDKey is the context key for domain entity IDs.
	EntityIDKey contextKey = "entity_id"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with additional functionality for medsync.
type Logger struct {
	slogger *slog.Logger
	level   slog.Level
	mu      sync.RWMutex
}

// global is the package-level default logger.
var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
	}
}

// parseLevel converts a Level to slog.Level.
func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel dynamically changes the log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = parseLevel(level)
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+8)

	if v := ctx.Value(ItemIDKey); v != nil {
		enriched = append(enriched, "item_id", v)
	}
	if v := ctx.Value(ItemTypeKey); v != nil {
		enriched = append(enriched, "item_type", v)
	}
	if v := ctx.Value(WorkerIDKey); v != nil {
		enriched = append(enriched, "worker_id", v)
	}
	if v := ctx.Value(EntityIDKey); v != nil {
		enriched = append(enriched, "entity_id", v)
	}

	enriched = append(enriched, args...)
	return enriched
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithItemID adds a sync item ID to the context.
func WithItemID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ItemIDKey, id)
}

// WithItemType adds a sync item type to the context.
func WithItemType(ctx context.Context, itemType string) context.Context {
	return context.WithValue(ctx, ItemTypeKey, itemType)
}

// WithWorkerID adds a delivery worker ID to the context.
func WithWorkerID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, WorkerIDKey, id)
}

// WithEntityID adds a domain entity ID to the context.
func WithEntityID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, EntityIDKey, id)
}

// ItemID extracts the sync item ID from context.
func ItemID(ctx context.Context) string {
	if v := ctx.Value(ItemIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// --- Domain-specific logging helpers ---

// LogDeliveryStart logs the start of a delivery attempt.
func LogDeliveryStart(ctx context.Context, logger *Logger, itemID, itemType, action string) {
	logger.DebugContext(ctx, "delivery started",
		"item_id", itemID,
		"item_type", itemType,
		"action", action,
	)
}

// LogDeliveryComplete logs a successful delivery.
func LogDeliveryComplete(ctx context.Context, logger *Logger, itemID string, duration time.Duration) {
	logger.InfoContext(ctx, "delivery completed",
		"item_id", itemID,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogDeliveryFailed logs a failed delivery attempt.
func LogDeliveryFailed(ctx context.Context, logger *Logger, itemID string, err error, retryCount int) {
	logger.WarnContext(ctx, "delivery failed",
		"item_id", itemID,
		"error", err.Error(),
		"retry_count", retryCount,
	)
}

// LogConflictDetected logs a detected conflict before resolution.
func LogConflictDetected(ctx context.Context, logger *Logger, entityID string, conflictCount int) {
	logger.InfoContext(ctx, "conflict detected",
		"entity_id", entityID,
		"conflict_count", conflictCount,
	)
}

// LogOfflinePeriodStart logs the opening of an offline period.
func LogOfflinePeriodStart(ctx context.Context, logger *Logger, reason string, queueSize int) {
	logger.WarnContext(ctx, "offline period started",
		"reason", reason,
		"queue_size", queueSize,
	)
}

// LogOfflinePeriodEnd logs the close of an offline period.
func LogOfflinePeriodEnd(ctx context.Context, logger *Logger, duration time.Duration, syncedItems int) {
	logger.InfoContext(ctx, "offline period ended",
		"duration_s", duration.Seconds(),
		"synced_items", syncedItems,
	)
}
