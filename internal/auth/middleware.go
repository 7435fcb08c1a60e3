package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/obs"
	pkghttp "github.com/strandnet/console/pkg/http"
)

// StaffSource is the subset of the staff repository the middleware needs.
type StaffSource interface {
	GetByID(ctx context.Context, id int64) (*models.StaffIdentity, error)
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
}

// RequireAuth validates the bearer token, enforces session freshness, and
// injects the resolved StaffContext. Every failure maps to 401 so the UI's
// forced-logout behavior stays uniform; the detail field distinguishes
// sub-kinds for display only.
func RequireAuth(issuer *TokenIssuer, staff StaffSource, freshness *FreshnessGuard, metrics *obs.Metrics, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := issuer.Validate(r.Context(), parts[1])
			if err != nil {
				metrics.TokenValidations.WithLabelValues("rejected").Inc()
				pkghttp.WriteErrorWithDetail(w, http.StatusUnauthorized,
					"unauthorized", "invalid or expired token", "token_invalid")
				return
			}
			metrics.TokenValidations.WithLabelValues("accepted").Inc()

			identity, err := staff.GetByID(r.Context(), claims.StaffID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteErrorWithDetail(w, http.StatusUnauthorized,
						"unauthorized", "invalid or expired token", "token_invalid")
					return
				}
				logger.Error("failed to load identity for request",
					slog.Int64("staff_id", claims.StaffID), slog.Any("error", err))
				pkghttp.WriteUnauthorized(w, "unable to verify session")
				return
			}

			if !identity.IsActive() {
				pkghttp.WriteErrorWithDetail(w, http.StatusUnauthorized,
					"unauthorized", "account is not active", "token_invalid")
				return
			}

			if err := freshness.CheckIdle(identity); err != nil {
				metrics.SessionsExpired.Inc()
				pkghttp.WriteErrorWithDetail(w, http.StatusUnauthorized,
					"unauthorized", "session expired due to inactivity", "session_expired")
				return
			}

			// Activity on the hot path keeps the session fresh. A failed touch
			// is logged but does not reject the request.
			if err := staff.TouchLastSeen(r.Context(), identity.ID, time.Now()); err != nil {
				logger.Warn("failed to update last_seen_at",
					slog.Int64("staff_id", identity.ID), slog.Any("error", err))
			}

			sc := &StaffContext{
				StaffID:       identity.ID,
				Username:      identity.Username,
				Role:          identity.Role,
				BootstrapMode: identity.BootstrapMode,
				SetupMode:     identity.SetupMode,
			}

			next.ServeHTTP(w, r.WithContext(WithStaffContext(r.Context(), sc)))
		})
	}
}
