package middleware

import (
	"net/http"
	"net/netip"

	"github.com/ametnes/nesis-console/internal/request"
)

// RealIP resolves the client address once per request. Forwarding headers
// count only when the peer is inside trusted.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := request.ResolveClientIP(r, trusted)
			next.ServeHTTP(w, r.WithContext(request.WithClientIP(r.Context(), ip)))
		})
	}
}
