package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ametnes/nesis-console/internal/config"
	"github.com/ametnes/nesis-console/internal/handlers"
	"github.com/ametnes/nesis-console/internal/middleware"
	"github.com/ametnes/nesis-console/internal/telemetry"
	"github.com/ametnes/nesis-console/internal/upstream"
	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// routerDeps is everything newRouter wires together.
type routerDeps struct {
	cfg         *config.Config
	version     string
	logger      *zap.Logger
	core        *upstream.Client
	sessions    handlers.SessionExchanger
	redis       handlers.Pinger // nil without REDIS_URL
	limiter     limiter.Store
	openAPIPath string
	tracing     bool
}

// handlerTimeout bounds a request: one upstream call plus some slack.
func handlerTimeout(cfg *config.Config) time.Duration {
	return cfg.UpstreamTimeout + 5*time.Second
}

func newRouter(deps routerDeps) (http.Handler, error) {
	cfg := deps.cfg
	r := mux.NewRouter()

	// Middleware registered first is the outermost wrapper.
	if deps.tracing {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.Timeout(handlerTimeout(cfg)))
	r.Use(middleware.ErrorHandler(deps.logger))
	r.Use(middleware.Audit(deps.logger))
	r.Use(middleware.Logging(deps.logger))

	sessionRateLimit, err := middleware.RateLimit(deps.limiter, cfg.SessionRateLimit, deps.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure session rate limit: %w", err)
	}

	healthChecker := handlers.NewHealthChecker(deps.core, deps.redis, deps.logger)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", handlers.VersionInfo(deps.version)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentType)

	handlers.NewSessionHandler(deps.sessions, deps.logger).RegisterRoutes(api, sessionRateLimit)
	handlers.NewConfigHandler(cfg).RegisterRoutes(api)
	handlers.NewOpenAPIHandler(deps.openAPIPath).RegisterRoutes(api)
	handlers.RegisterResources(api, deps.core, deps.logger)

	// Preflight requests need a matching route for the middleware chain to run;
	// CORS answers them before this handler is reached.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.PathPrefix("/").Handler(handlers.NewSPAHandler(cfg.AppHome)).Methods("GET", "HEAD")

	return r, nil
}
