package middleware

import (
	"net/http"

	logpkg "github.com/ametnes/nesis-console/internal/logger"
	"github.com/ametnes/nesis-console/internal/request"
	"go.uber.org/zap"
)

// Audit logs security-related events for monitoring
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			fields := func() []zap.Field {
				return []zap.Field{
					zap.String("request_id", request.RequestIDFromContext(r.Context())),
					zap.Int("status_code", wrapped.statusCode),
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
				}
			}

			switch wrapped.statusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				if r.Method == http.MethodPost && r.URL.Path == "/api/sessions" {
					logger.Warn("sign_in_rejected", fields()...)
					return
				}
				logger.Warn("security_event", fields()...)
			case http.StatusTooManyRequests:
				logger.Warn("rate_limit_violation", fields()...)
			}
		})
	}
}
