package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"

	"go-trip-planner/internal/auth"
)

// CORS allows credentialed requests from the configured origins. A
// wildcard origin cannot be combined with credentials, so it is dropped.
func CORS(origins []string) func(http.Handler) http.Handler {
	origins = slices.DeleteFunc(slices.Clone(origins), func(o string) bool { return o == "*" })

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", requestIDHeader, auth.CSRFHeaderName},
		ExposedHeaders:   []string{requestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:           3600,
		AllowCredentials: true,
	})

	return handler.Handler
}
