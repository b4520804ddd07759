package ops

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/campuso/crossfeed/internal/config"
)

// Logger is a structured logger wrapper
type Logger struct {
	*slog.Logger
	level  slog.Level
	format string
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new structured logger based on config. Output goes
// to the configured file, or stderr when none is set; stdout belongs to
// the terminal UI.
func NewLogger(cfg *config.Logging) (*Logger, error) {
	w := io.Writer(os.Stderr)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
	}
	return NewLoggerWithWriter(cfg, w), nil
}

// NewLoggerWithWriter creates a logger with a custom writer
func NewLoggerWithWriter(cfg *config.Logging, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		level:  level,
		format: cfg.Format,
	}
}

// WithComponent adds a component field to all log messages
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		level:  l.level,
		format: l.format,
	}
}

// WithFields adds custom fields to the logger
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(fields...),
		level:  l.level,
		format: l.format,
	}
}

// IsDebugEnabled returns true if debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.level <= slog.LevelDebug
}

// Component-specific logger helpers

// LogPageFetch logs a feed page fetch
func (l *Logger) LogPageFetch(op string, page, count int, duration time.Duration, err error) {
	if err != nil {
		l.Error("page fetch failed",
			"operation", op,
			"page", page,
			"duration_ms", duration.Milliseconds(),
			"error", err)
	} else {
		l.Debug("page fetch completed",
			"operation", op,
			"page", page,
			"items", count,
			"duration_ms", duration.Milliseconds())
	}
}

// LogSubmission logs a post submission attempt
func (l *Logger) LogSubmission(txID string, withMedia bool, err error) {
	if err != nil {
		l.Error("submission failed",
			"tx_id", txID,
			"with_media", withMedia,
			"error", err)
	} else {
		l.Info("submission accepted",
			"tx_id", txID,
			"with_media", withMedia)
	}
}

// LogReaction logs a reaction dispatch
func (l *Logger) LogReaction(postID int64, reaction string, err error) {
	if err != nil {
		l.Warn("reaction failed",
			"post_id", postID,
			"reaction", reaction,
			"error", err)
	} else {
		l.Debug("reaction sent",
			"post_id", postID,
			"reaction", reaction)
	}
}

// LogCacheOperation logs a cache operation
func (l *Logger) LogCacheOperation(op string, key string, hit bool) {
	l.Debug("cache operation",
		"operation", op,
		"key", key,
		"hit", hit)
}

// LogStartup logs application startup information
func (l *Logger) LogStartup(version, commit string) {
	l.Info("crossfeed starting",
		"version", version,
		"commit", commit)
}

// LogShutdown logs application shutdown
func (l *Logger) LogShutdown(reason string) {
	l.Info("crossfeed shutting down",
		"reason", reason)
}

// Default logger configuration
var defaultLogger = NewLoggerWithWriter(&config.Logging{
	Level:  "info",
	Format: "text",
}, os.Stderr)

// Default returns the default logger
func Default() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultLogger = l
}
