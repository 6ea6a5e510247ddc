package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORSOrigins parses a comma-separated FRONTEND_URL into allowed origins,
// always including the local development client.
func CORSOrigins(frontendURL string) []string {
	origins := []string{"http://localhost:3000"}
	seen := map[string]bool{origins[0]: true}
	for _, origin := range strings.Split(frontendURL, ",") {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed != "" && !seen[trimmed] {
			seen[trimmed] = true
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// CORS creates rs/cors middleware for the console origins
func CORS(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   CORSOrigins(frontendURL),
		AllowCredentials: true,
		MaxAge:           86400,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
	})
	return c.Handler
}
