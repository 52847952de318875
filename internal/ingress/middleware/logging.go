// Package middleware provides HTTP middleware components for the ingress API.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestLogger logs one structured line per completed request: method,
// path, status, latency, and the request's correlation ID.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(rw, r)

			logger.Info("http request",
				slog.Group("request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("correlation_id", GetCorrelationID(r.Context())),
				),
				slog.Int("status", rw.status),
				slog.Duration("latency", time.Since(start)),
			)
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code a
// handler wrote, since http.ResponseWriter itself exposes no way to read it
// back.
type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
