package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/services"
	pkgauth "github.com/strandnet/console/pkg/auth"
	pkghttp "github.com/strandnet/console/pkg/http"
)

// AuthServiceInterface defines the authentication operations the handler needs.
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password, totpCode, ipAddress, userAgent string) (*services.LoginResponse, error)
}

// StaffSelfService defines the self-service operations on the caller's own account.
type StaffSelfService interface {
	ChangePassword(ctx context.Context, staffID int64, currentPassword, newPassword string) error
	RevokeSessions(ctx context.Context, actorID, targetID int64) error
}

// IdentityHandler handles login, whoami, and self-service account operations.
type IdentityHandler struct {
	authService  AuthServiceInterface
	staffService StaffSelfService
	ipConfig     *pkghttp.IPConfig
}

func NewIdentityHandler(authService AuthServiceInterface, staffService StaffSelfService, ipConfig *pkghttp.IPConfig) *IdentityHandler {
	return &IdentityHandler{
		authService:  authService,
		staffService: staffService,
		ipConfig:     ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code" validate:"omitempty,len=6,numeric"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// WhoamiResponse describes the authenticated identity
type WhoamiResponse struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	BootstrapMode bool   `json:"bootstrap_mode"`
	SetupMode     bool   `json:"setup_mode"`
}

// Login handles POST /identity/login. Every authentication failure is a 401;
// the detail field distinguishes locked from invalid credentials, and a
// disabled account is deliberately indistinguishable from a bad password.
func (h *IdentityHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	resp, err := h.authService.Login(r.Context(), req.Username, req.Password, req.TOTPCode, ipAddress, userAgent)
	if err != nil {
		var lockedErr *services.LockedError
		switch {
		case errors.As(err, &lockedErr):
			retryAfter := int(time.Until(lockedErr.Until).Seconds()) + 1
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			pkghttp.WriteErrorWithDetail(w, http.StatusUnauthorized,
				"unauthorized", "Too many failed attempts. Please try again later.", "locked")
		case errors.Is(err, services.ErrMFARequired):
			pkghttp.WriteErrorWithDetail(w, http.StatusUnauthorized,
				"unauthorized", "A verification code is required.", "mfa_required")
		case errors.Is(err, models.ErrInvalidCredentials),
			errors.Is(err, models.ErrAccountDisabled):
			// Disabled accounts get the generic response to prevent
			// account-existence probing.
			pkghttp.WriteErrorWithDetail(w, http.StatusUnauthorized,
				"unauthorized", "Authentication failed", "invalid_credentials")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Whoami handles GET /identity/whoami.
func (h *IdentityHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&WhoamiResponse{
		ID:            sc.StaffID,
		Username:      sc.Username,
		Role:          sc.Role,
		BootstrapMode: sc.BootstrapMode,
		SetupMode:     sc.SetupMode,
	})
}

// ChangePassword handles POST /identity/password. A successful change bumps
// token_version, so the caller must log in again.
func (h *IdentityHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.staffService.ChangePassword(r.Context(), sc.StaffID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var pwErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		case errors.As(err, &pwErr):
			pkghttp.WriteBadRequest(w, pwErr.Error())
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /identity/logout-all: the caller revokes every one
// of their own outstanding tokens.
func (h *IdentityHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.staffService.RevokeSessions(r.Context(), sc.StaffID, sc.StaffID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
