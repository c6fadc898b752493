package middleware

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/onkernel/hypedesk/lib/logger"
	hdotel "github.com/onkernel/hypedesk/lib/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics returns a middleware that records request count and duration.
func HTTPMetrics(m *hdotel.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", routePattern(r)),
				attribute.Int("status", wrapped.statusCode),
			)
			m.RequestsTotal.Add(r.Context(), 1, attrs)
			m.RequestDuration.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}
}

// NoopHTTPMetrics returns a middleware that does nothing (for when OTel is disabled).
func NoopHTTPMetrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// AccessLogger returns a middleware that logs HTTP requests using slog with trace context.
func AccessLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			duration := time.Since(start)
			log.InfoContext(r.Context(),
				fmt.Sprintf("%s %s %d %dB %dms", r.Method, path, wrapped.statusCode, wrapped.bytesWritten, duration.Milliseconds()),
				"method", r.Method,
				"path", path,
				"status", wrapped.statusCode,
				"bytes", wrapped.bytesWritten,
				"duration_ms", duration.Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// NewAccessLogger creates an access logger with OTel handler if available.
func NewAccessLogger(cfg logger.Config, otelHandler slog.Handler) *slog.Logger {
	return logger.NewSubsystemLogger(logger.SubsystemAPI, cfg, otelHandler)
}

// InjectLogger returns middleware that adds the logger to the request context.
func InjectLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.AddToContext(r.Context(), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// statusWriter captures status and byte count. It passes Hijack through so
// websocket upgrades work behind it.
type statusWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap provides access to the underlying ResponseWriter for http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
