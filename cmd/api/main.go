package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/authz"
	"github.com/strandnet/console/internal/background"
	"github.com/strandnet/console/internal/config"
	"github.com/strandnet/console/internal/database"
	"github.com/strandnet/console/internal/handlers"
	middlewareCustom "github.com/strandnet/console/internal/middleware"
	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/obs"
	"github.com/strandnet/console/internal/repositories"
	"github.com/strandnet/console/internal/routes"
	"github.com/strandnet/console/internal/services"
	"github.com/strandnet/console/internal/throttle"
	pkgauth "github.com/strandnet/console/pkg/auth"
	pkghttp "github.com/strandnet/console/pkg/http"
	pkglogger "github.com/strandnet/console/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	staffRepo := repositories.NewStaffRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)

	// Throttle ledger for progressive lockouts
	ledger := throttle.NewLedger(throttle.Config{
		FreeAttempts: cfg.Throttle.FreeAttempts,
		BaseLockout:  cfg.Throttle.BaseLockout,
		MaxLockout:   cfg.Throttle.MaxLockout,
		Window:       cfg.Throttle.Window,
	})

	// Token issuer with cached version lookups for the kill switch
	versionCache := auth.NewVersionCache(staffRepo, cfg.Auth.TokenVersionCacheTTL)
	issuer := auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenLifetime, versionCache, cfg.Auth.StoreTimeout)
	totpManager := auth.NewTOTPManager(cfg.Auth.TOTPIssuer)
	freshness := auth.NewFreshnessGuard(cfg.Auth.IdleTimeout)
	resolver := authz.NewResolver()
	metrics := obs.NewMetrics()

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	authService := services.NewAuthService(
		staffRepo, attemptRepo, ledger, issuer, totpManager,
		metrics, logger, auditLogger,
		cfg.Auth.StoreTimeout, 30*24*time.Hour,
	)
	staffService := services.NewStaffService(staffRepo, versionCache, logger, auditLogger)
	mfaService := services.NewMFAService(staffRepo, totpManager, versionCache, logger, auditLogger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	healthHandler := handlers.NewHealthHandler(db)
	identityHandler := handlers.NewIdentityHandler(authService, staffService, ipConfig)
	rbacHandler := handlers.NewRBACHandler(resolver)
	staffHandler := handlers.NewStaffHandler(staffService)
	mfaHandler := handlers.NewMFAHandler(mfaService)

	// Bootstrap first admin account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureBootstrapAdmin(ctx, staffRepo, cfg, logger); err != nil {
		logger.Error("failed to ensure bootstrap admin", slog.Any("error", err))
	}
	cancel()

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.ActivityLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(auth.IPAllowlist(cfg.Server.IPAllowlist, ipConfig, logger))

	// Register routes
	routes.RegisterRoutes(router,
		healthHandler, identityHandler, rbacHandler, staffHandler, mfaHandler,
		issuer, staffRepo, freshness, resolver, metrics, logger)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(attemptRepo, ledger, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureBootstrapAdmin creates the first admin account if BOOTSTRAP_USERNAME
// and BOOTSTRAP_PASSWORD are configured. The account carries bootstrap_mode
// until a normal admin exists.
func ensureBootstrapAdmin(ctx context.Context, staffRepo *repositories.StaffRepository, cfg *config.Config, logger *slog.Logger) error {
	username := cfg.Auth.BootstrapUsername
	password := cfg.Auth.BootstrapPassword

	if username == "" || password == "" {
		logger.Info("no BOOTSTRAP_USERNAME or BOOTSTRAP_PASSWORD set, skipping bootstrap admin creation")
		return nil
	}

	_, err := staffRepo.GetByUsername(ctx, username)
	if err == nil {
		logger.Info("bootstrap admin already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check for bootstrap admin: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	admin := &models.StaffIdentity{
		Username:      username,
		PasswordHash:  hashedPassword,
		Role:          models.RoleAdmin,
		Status:        models.StatusActive,
		BootstrapMode: true,
		SetupMode:     true,
	}

	if _, err := staffRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	logger.Info("bootstrap admin created", slog.String("username", username))
	return nil
}
