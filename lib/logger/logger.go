// Package logger provides structured logging helpers shared by every
// hypedesk subsystem.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// Subsystem names attached to every record as the "subsystem" attribute.
const (
	SubsystemAPI       = "api"
	SubsystemInstances = "instances"
	SubsystemMonitor   = "monitor"
	SubsystemTerminal  = "terminal"
	SubsystemStore     = "store"
)

// Config controls logger construction.
type Config struct {
	Level  slog.Level
	Output io.Writer
}

// NewConfig returns the logger config derived from LOG_LEVEL.
func NewConfig() Config {
	return Config{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Output: os.Stdout,
	}
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New builds the root JSON logger. When otelHandler is non-nil every record
// is also forwarded to it.
func New(cfg Config, otelHandler slog.Handler) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	var h slog.Handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	if otelHandler != nil {
		h = &teeHandler{handlers: []slog.Handler{h, otelHandler}}
	}
	return slog.New(h)
}

// NewSubsystemLogger builds a logger tagged with a subsystem name.
func NewSubsystemLogger(subsystem string, cfg Config, otelHandler slog.Handler) *slog.Logger {
	return New(cfg, otelHandler).With("subsystem", subsystem)
}

// AddToContext returns a copy of ctx carrying log.
func AddToContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	return slog.Default()
}

// teeHandler fans a record out to several handlers.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}
