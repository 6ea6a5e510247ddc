package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ametnes/nesis-console/internal/config"
	"github.com/ametnes/nesis-console/internal/handlers"
	"github.com/ametnes/nesis-console/internal/logger"
	"github.com/ametnes/nesis-console/internal/middleware"
	"github.com/ametnes/nesis-console/internal/services/identity"
	"github.com/ametnes/nesis-console/internal/services/session"
	"github.com/ametnes/nesis-console/internal/telemetry"
	"github.com/ametnes/nesis-console/internal/upstream"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(telemetry.ServiceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.String("profile", cfg.Profile),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("service_endpoint", logger.SanitizeURL(cfg.ServiceEndpoint)),
		zap.Bool("azure_enabled", cfg.Azure.Enabled),
		zap.Bool("google_enabled", cfg.Google.Enabled),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx := context.Background()

	var tracerProvider *sdktrace.TracerProvider
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tracerProvider, err = telemetry.InitTracer(ctx, telemetry.ServiceName, version, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := telemetry.Shutdown(shutdownCtx, tracerProvider); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	core := upstream.NewClient(cfg.ServiceEndpoint, cfg.UpstreamTimeout, zapLogger)

	identityClient := identity.NewHTTPClient(cfg.UpstreamTimeout)
	var azure session.AzureVerifier
	if cfg.Azure.Enabled {
		azure = identity.NewAzureVerifier(cfg.Azure.GraphURL, identityClient)
	}
	var google session.GoogleVerifier
	if cfg.Google.Enabled {
		jwks := identity.NewJWKSManager(cfg.Google.JWKSURL, identityClient)
		google = identity.NewGoogleVerifier(identity.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURI:  cfg.Google.RedirectURI,
			TokenURL:     cfg.Google.TokenURL,
		}, jwks, identityClient)
	}
	exchanger := session.NewExchanger(core, cfg.TrustToken, azure, google, zapLogger)

	var redisClient *redis.Client
	var redisPinger handlers.Pinger
	if cfg.RedisURL != "" {
		redisClient, err = middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		redisPinger = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		zapLogger.Info("connected_to_redis")
	}

	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_limiter_store", zap.Error(err))
	}

	router, err := newRouter(routerDeps{
		cfg:         cfg,
		version:     version,
		logger:      zapLogger,
		core:        core,
		sessions:    exchanger,
		redis:       redisPinger,
		limiter:     limiterStore,
		openAPIPath: filepath.Join("api", "openapi", "openapi.yaml"),
		tracing:     tracerProvider != nil,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_build_router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   handlerTimeout(cfg) + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
