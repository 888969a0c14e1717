// Package middleware holds the HTTP middleware chain internal/api wires
// onto every route: Recovery, RequestID, RequestTime, Logger, Timeout,
// ContentTypeJSON, LatencyMiddleware, and RequireAuth (in auth.go).
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ims/pkg/requestcontext"
)

// MetricsRecorder is the narrow subset of internal/obsv/metrics.Metrics
// LatencyMiddleware needs, kept as an interface so pkg/middleware never
// imports the concrete metrics package.
type MetricsRecorder interface {
	ObserveEndpointLatency(endpoint string, durationSeconds float64)
}

// RequestID injects a fresh correlation ID into the request context
// (or reuses an inbound X-Request-Id header) and echoes it back on the
// response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime stamps the context with a fixed "now" for the lifetime of
// the request, so every store call within one handler observes the
// same timestamp (used by the new-incident backdating policy).
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recovery converts a panic in a downstream handler into a 500 instead
// of crashing the server, logging the recovered value with the request
// ID for correlation.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "recovered from panic",
						"panic", rec,
						"request_id", requestcontext.RequestID(ctx),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal_error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logger logs one line per request at completion, with status, method,
// path, and latency.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.InfoContext(r.Context(), "handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(r.Context()),
			)
		})
	}
}

// Timeout bounds how long a handler may run before the request context
// is cancelled. Not for streaming routes: http.TimeoutHandler buffers
// the response.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"internal_error","error_description":"request timed out"}`)
	}
}

// ContentTypeJSON sets the default response content type for handlers
// that don't set their own (SSE and streamed-array responses override
// it themselves).
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// LatencyMiddleware records per-route latency into a MetricsRecorder.
func LatencyMiddleware(metrics MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if metrics != nil {
				metrics.ObserveEndpointLatency(r.URL.Path, time.Since(start).Seconds())
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the underlying writer so streamed responses (SSE,
// incremental JSON arrays) keep working behind the logging wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Chain composes middleware in the given order: Chain(a, b)(h) == a(b(h)).
func Chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		h := final
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
