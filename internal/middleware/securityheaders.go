package middleware

import (
	"net/http"
	"strings"
)

const (
	apiContentSecurityPolicy = "default-src 'none'"
	// The console talks to Azure AD and Google from the browser.
	appContentSecurityPolicy = "default-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'; " +
		"connect-src 'self' https://login.microsoftonline.com https://graph.microsoft.com https://accounts.google.com https://oauth2.googleapis.com; " +
		"frame-src https://login.microsoftonline.com https://accounts.google.com; script-src 'self' https://accounts.google.com"
)

// SecurityHeaders sets security headers on all responses
func SecurityHeaders(enableHSTS bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/healthz" || r.URL.Path == "/version" {
				w.Header().Set("Content-Security-Policy", apiContentSecurityPolicy)
			} else {
				w.Header().Set("Content-Security-Policy", appContentSecurityPolicy)
			}

			// Only over TLS; local development runs plain HTTP.
			if enableHSTS && r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			}

			next.ServeHTTP(w, r)
		})
	}
}
