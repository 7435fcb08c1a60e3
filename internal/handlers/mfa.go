package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/services"
	pkghttp "github.com/strandnet/console/pkg/http"
)

// MFAServiceInterface defines the TOTP enrollment operations the handler needs.
type MFAServiceInterface interface {
	Setup(ctx context.Context, staffID int64) (*services.MFASetupResponse, error)
	Enable(ctx context.Context, staffID int64, secret, code string) error
	Disable(ctx context.Context, staffID int64, code string) error
}

// MFAHandler handles TOTP self-enrollment endpoints.
type MFAHandler struct {
	service MFAServiceInterface
}

func NewMFAHandler(service MFAServiceInterface) *MFAHandler {
	return &MFAHandler{service: service}
}

// EnableMFARequest confirms enrollment with a code generated from the secret
type EnableMFARequest struct {
	Secret string `json:"secret" validate:"required"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// DisableMFARequest removes the second factor
type DisableMFARequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Setup handles POST /identity/mfa/setup
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	resp, err := h.service.Setup(r.Context(), sc.StaffID)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "MFA is already enabled")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Enable handles POST /identity/mfa/enable
func (h *MFAHandler) Enable(w http.ResponseWriter, r *http.Request) {
	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req EnableMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Enable(r.Context(), sc.StaffID, req.Secret, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteBadRequest(w, "Verification code is incorrect")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "MFA is already enabled")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Disable handles POST /identity/mfa/disable
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req DisableMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Disable(r.Context(), sc.StaffID, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteBadRequest(w, "Verification code is incorrect")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "MFA is not enabled")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
