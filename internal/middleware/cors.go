package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// devOrigins are allowed when no origins are configured outside production.
var devOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// CORS lets the admin frontend call the API from the given origins. With no
// origins configured, production allows none and other environments allow
// local dev servers.
func CORS(allowedOrigins []string, environment string) func(next http.Handler) http.Handler {
	origins := allowedOrigins
	if len(origins) == 0 && environment != "prod" {
		origins = devOrigins
	}

	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		// Retry-After and the rate limit headers drive the editor's backoff.
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		// An empty list means "any origin" to go-chi/cors.
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}
