// Package main is the entry point for the Hola Lucia admin API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AIX-Clever/chat-booking-admin/internal/config"
	"github.com/AIX-Clever/chat-booking-admin/internal/database"
	"github.com/AIX-Clever/chat-booking-admin/internal/handler"
	"github.com/AIX-Clever/chat-booking-admin/internal/middleware"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/response"
	"github.com/AIX-Clever/chat-booking-admin/internal/repository"
	"github.com/AIX-Clever/chat-booking-admin/internal/service"
)

func main() {
	// Setup structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret is required (HOLALUCIA_AUTH_JWT_SECRET)")
	}

	logger.Info("Starting Hola Lucia API",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if version, dirty, err := db.MigrationVersion(cfg.Database); err == nil {
		logger.Info("Database migrations completed", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}

	redis, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Repositories
	tenantRepo := repository.NewCachedTenantRepository(
		repository.NewTenantRepository(db.Pool()), redis, cfg.Cache.TenantTTL, logger,
	)
	usageRepo := repository.NewUsageRepository(db.Pool())
	workflowRepo := repository.NewWorkflowRepository(db.Pool())

	// Services
	entitlementService := service.NewEntitlementService(tenantRepo, usageRepo, logger)
	workflowService := service.NewWorkflowService(workflowRepo, entitlementService, logger)
	billingService := service.NewBillingService(tenantRepo, cfg.Stripe, logger)

	// Handlers
	entitlementHandler := handler.NewEntitlementHandler(entitlementService)
	workflowHandler := handler.NewWorkflowHandler(workflowService, entitlementService)
	billingHandler := handler.NewBillingHandler(billingService, logger)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins, cfg.Server.Environment))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(db, redis))
	r.Handle("/metrics", promhttp.Handler())

	// Stripe authenticates webhooks with its own signature.
	r.Post("/webhooks/stripe", billingHandler.Webhook)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{
				"name":    "Hola Lucia Admin API",
				"version": "1.0.0",
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(middleware.AuthConfig{
				JWTSecret: cfg.Auth.JWTSecret,
				Issuer:    cfg.Auth.JWTIssuer,
				Leeway:    cfg.Auth.Leeway,
			}))
			if cfg.RateLimit.Enabled {
				r.Use(middleware.RateLimit(redis, middleware.RateLimitConfig{
					RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
					BurstSize:         cfg.RateLimit.RequestsPerMinute / 6,
					Logger:            logger,
				}))
			}

			r.Mount("/entitlements", entitlementHandler.Routes())
			r.Mount("/workflows", workflowHandler.Routes())
			r.Mount("/billing", billingHandler.Routes())
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// healthHandler reports liveness only.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	}
}

// pinger is satisfied by *database.Postgres and *database.Redis.
type pinger interface {
	Ping(ctx context.Context) error
}

// readyHandler verifies the database and Redis connections.
func readyHandler(db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			response.Error(w, apierrors.ErrServiceUnavailable.WithDetails(map[string]string{"component": "database"}))
			return
		}
		if err := cache.Ping(ctx); err != nil {
			response.Error(w, apierrors.ErrServiceUnavailable.WithDetails(map[string]string{"component": "redis"}))
			return
		}

		response.OK(w, map[string]string{"status": "ok", "database": "connected", "redis": "connected"})
	}
}
