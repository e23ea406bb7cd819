package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"screentime/internal/auth"
	"screentime/internal/config"
	"screentime/internal/docstore"
	"screentime/internal/handlers"
	"screentime/internal/logging"
	"screentime/internal/metrics"
	"screentime/internal/repository"
	"screentime/internal/security"
	"screentime/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logging.SetupWithLevel(logging.LevelFromString(cfg.LogLevel))

	if cfg.JWTSecret == "" {
		slog.Error("AUTH_JWT_SECRET must be set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := docstore.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open document store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			slog.Warn("Error closing document store", "error", err)
		}
	}()

	m := metrics.New()

	// Initialize repositories
	familyRepo := repository.NewFamilyRepository(store)
	settingsRepo := repository.NewSettingsRepository(store)
	userRepo := repository.NewUserRepository(store)

	// Initialize services
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		slog.Warn("Approval emails disabled", "error", err)
	}
	var notifier service.ApprovalNotifier
	if emailService != nil && emailService.IsEnabled() {
		notifier = emailService
	}

	migrationService := service.NewMigrationService(familyRepo, settingsRepo, m)
	familyService := service.NewFamilyService(familyRepo, settingsRepo, userRepo, migrationService, service.NewSession(), notifier, m)

	var joinLimiter *security.RateLimiter
	if cfg.JoinRateLimit > 0 {
		joinLimiter = security.NewRateLimiter(cfg.JoinRateLimit, time.Minute)
		go joinLimiter.Run(ctx, time.Hour)
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(auth.NewJWTManager(cfg.JWTSecret, time.Hour), joinLimiter)
	familyHandler := handlers.NewFamilyHandler(familyService, cfg.AppBaseURL)

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	familyHandler.RegisterRoutes(mux, middleware)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handlers.RequestID(handlers.Logging(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.ServerPort, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server stopped")
}
