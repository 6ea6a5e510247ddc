package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ametnes/nesis-console/internal/logger"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthChecker handles health check requests
type HealthChecker struct {
	core   Pinger
	redis  Pinger
	logger *zap.Logger
}

// NewHealthChecker creates a new health checker. redis may be nil when no
// Redis store is configured.
func NewHealthChecker(core Pinger, redis Pinger, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{core: core, redis: redis, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("mode") != "extended" {
		respondJSON(w, http.StatusOK, response)
		return
	}

	checks := map[string]string{
		"core_api": h.check(r.Context(), "core_api", h.core),
	}
	if h.redis != nil {
		checks["redis"] = h.check(r.Context(), "redis", h.redis)
	}
	response.Checks = checks

	statusCode := http.StatusOK
	for _, result := range checks {
		if result != "healthy" {
			response.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, statusCode, response)
}

func (h *HealthChecker) check(ctx context.Context, name string, p Pinger) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		h.logger.Warn("health_check_failed",
			zap.String("check", name),
			zap.String("error", logger.SanitizeError(err)),
		)
		return "unhealthy: " + logger.SanitizeString(err.Error(), 200)
	}
	return "healthy"
}

// VersionInfo handles the /version endpoint
func VersionInfo(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"version":   version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
