// Package logging provides the request-logging middleware and default
// logger, grounded in shape on the teacher's middleware.go
// LoggingMiddleware and gateway.go discardLogger — a process has
// exactly one logger, constructed explicitly at startup and passed by
// reference, never a package-level global (spec.md §9's singleton
// rule).
package logging

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Discard returns a no-op logger that drops everything written to it,
// the default until a caller supplies a real one.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// clientIP prefers X-Forwarded-For/X-Real-IP over r.RemoteAddr, since a
// gateway deployed behind a load balancer or reverse proxy otherwise
// logs the proxy's address on every request.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// Middleware logs every request with method, path, status, duration,
// and remote address, at a level that escalates with the response
// status (teacher's middleware.go, same field set and escalation
// rule).
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"remote_addr", clientIP(r),
			)
		})
	}
}
