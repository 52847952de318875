// Package middleware provides HTTP middleware components for the ingress API.
package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// panicProblem is the RFC 7807 body written when Recovery catches a panic.
// It mirrors internal/ingress.ProblemDetail's shape; duplicated rather than
// imported to keep this package independent of the server package it's
// middleware for.
type panicProblem struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail"`
	Instance      string `json:"instance"`
	CorrelationID string `json:"correlationId"`
}

// Recovery catches panics from downstream handlers, logs the stack trace,
// and responds with a problem+json 500 instead of letting net/http close
// the connection with no body.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverAndRespond(w, r, logger)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverAndRespond(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	panicked := recover()
	if panicked == nil {
		return
	}

	correlationID := GetCorrelationID(r.Context())

	logger.Error("panic recovered",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("correlation_id", correlationID),
		slog.Any("panic", panicked),
		slog.String("stack", string(debug.Stack())),
	)

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusInternalServerError)

	problem := panicProblem{
		Type:          fmt.Sprintf("https://eventpipe.dev/problems/%d", http.StatusInternalServerError),
		Title:         "Internal Server Error",
		Status:        http.StatusInternalServerError,
		Detail:        "an unexpected error occurred while processing the request",
		Instance:      r.URL.Path,
		CorrelationID: correlationID,
	}

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		logger.Error("failed to encode panic response", slog.String("error", err.Error()))
	}
}
