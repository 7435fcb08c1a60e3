package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/authz"
	"github.com/strandnet/console/internal/handlers"
	"github.com/strandnet/console/internal/middleware"
	"github.com/strandnet/console/internal/obs"
)

// RegisterRoutes registers all application routes. Everything except /health
// and /identity/login requires a bearer token.
func RegisterRoutes(
	router chi.Router,
	healthHandler *handlers.HealthHandler,
	identityHandler *handlers.IdentityHandler,
	rbacHandler *handlers.RBACHandler,
	staffHandler *handlers.StaffHandler,
	mfaHandler *handlers.MFAHandler,
	issuer *auth.TokenIssuer,
	staffSource auth.StaffSource,
	freshness *auth.FreshnessGuard,
	resolver *authz.Resolver,
	metrics *obs.Metrics,
	logger *slog.Logger,
) {
	rateLimitConfig := middleware.DefaultLoginRateLimit()

	// Public routes - no authentication required
	router.Get("/health", healthHandler.Check)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/identity/login", identityHandler.Login)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(issuer, staffSource, freshness, metrics, logger))

		// Any authenticated identity
		r.Get("/identity/whoami", identityHandler.Whoami)
		r.Post("/identity/password", identityHandler.ChangePassword)
		r.Post("/identity/logout-all", identityHandler.LogoutAll)
		r.Get("/rbac/me/actions", rbacHandler.MyActions)

		// TOTP self-enrollment
		r.Post("/identity/mfa/setup", mfaHandler.Setup)
		r.Post("/identity/mfa/enable", mfaHandler.Enable)
		r.Post("/identity/mfa/disable", mfaHandler.Disable)

		// Staff management, gated per action
		r.With(authz.RequirePermission(resolver, authz.ActionStaffList)).Get("/staff", staffHandler.List)
		r.With(authz.RequirePermission(resolver, authz.ActionStaffList)).Get("/staff/{id}", staffHandler.Get)
		r.With(authz.RequirePermission(resolver, authz.ActionStaffCreate)).Post("/staff", staffHandler.Create)
		r.With(authz.RequirePermission(resolver, authz.ActionStaffUpdate)).Patch("/staff/{id}/role", staffHandler.UpdateRole)
		r.With(authz.RequirePermission(resolver, authz.ActionStaffArchive)).Patch("/staff/{id}/status", staffHandler.UpdateStatus)
		r.With(authz.RequirePermission(resolver, authz.ActionStaffRevoke)).Post("/staff/{id}/revoke-sessions", staffHandler.RevokeSessions)

		// Operational metrics
		r.With(authz.RequirePermission(resolver, authz.ActionMetricsRead)).Handle("/metrics", promhttp.Handler())
	})
}
