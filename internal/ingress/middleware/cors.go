// Package middleware provides HTTP middleware components for the ingress API.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig describes the settings the CORS middleware needs. Defined as an
// interface so internal/ingress.Config can supply its own concrete type
// without this package importing it back.
type CORSConfig interface {
	GetAllowedOrigins() []string
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
	GetMaxAge() int
}

// CORS answers cross-origin requests per config, short-circuiting preflight
// OPTIONS requests with a bare 204 once the CORS headers are set.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	allowedOrigins := config.GetAllowedOrigins()
	wildcard := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
	methods := strings.Join(config.GetAllowedMethods(), ", ")
	headers := strings.Join(config.GetAllowedHeaders(), ", ")
	maxAge := config.GetMaxAge()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			switch {
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			case originAllowed(r.Header.Get("Origin"), allowedOrigins):
				h.Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			}

			if methods != "" {
				h.Set("Access-Control-Allow-Methods", methods)
			}

			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}

			if maxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}

	for _, candidate := range allowed {
		if candidate == origin {
			return true
		}
	}

	return false
}
