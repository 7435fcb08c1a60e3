package services

import (
	"context"
	"log/slog"

	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/models"
	pkglogger "github.com/strandnet/console/pkg/logger"
)

// MFAStaffStore is the subset of the staff repository used for MFA
// enrollment.
type MFAStaffStore interface {
	GetByID(ctx context.Context, id int64) (*models.StaffIdentity, error)
	SetTOTPSecret(ctx context.Context, id int64, secret *string) error
}

// MFASetupResponse carries the generated secret and provisioning QR. The
// secret is echoed back on enable so enrollment needs no server-side pending
// state.
type MFASetupResponse struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qr_code_url"`
}

// MFAService handles TOTP self-enrollment.
type MFAService struct {
	store       MFAStaffStore
	totp        *auth.TOTPManager
	versions    VersionInvalidator
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewMFAService(store MFAStaffStore, totp *auth.TOTPManager, versions VersionInvalidator, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *MFAService {
	return &MFAService{
		store:       store,
		totp:        totp,
		versions:    versions,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Setup generates a fresh TOTP secret and QR code for the caller's
// authenticator app. Nothing is stored until Enable confirms a valid code.
func (s *MFAService) Setup(ctx context.Context, staffID int64) (*MFASetupResponse, error) {
	identity, err := s.store.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}

	if identity.MFAEnabled() {
		return nil, models.ErrConflict
	}

	secret, qrURL, err := s.totp.GenerateSecret(identity.Username)
	if err != nil {
		s.logger.Error("failed to generate TOTP secret",
			slog.Int64("staff_id", staffID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &MFASetupResponse{Secret: secret, QRCodeURL: qrURL}, nil
}

// Enable stores the secret after the caller proves possession with a valid
// code. Enabling MFA bumps token_version, ending other live sessions.
func (s *MFAService) Enable(ctx context.Context, staffID int64, secret, code string) error {
	identity, err := s.store.GetByID(ctx, staffID)
	if err != nil {
		return err
	}

	if identity.MFAEnabled() {
		return models.ErrConflict
	}

	valid, err := s.totp.ValidateCode(secret, code)
	if err != nil || !valid {
		return models.ErrInvalidCredentials
	}

	if err := s.store.SetTOTPSecret(ctx, staffID, &secret); err != nil {
		return err
	}

	s.versions.Invalidate(staffID)
	s.auditLogger.LogAccountAction("mfa_enabled", staffID, staffID, nil)
	return nil
}

// Disable removes the second factor after verifying a current code.
func (s *MFAService) Disable(ctx context.Context, staffID int64, code string) error {
	identity, err := s.store.GetByID(ctx, staffID)
	if err != nil {
		return err
	}

	if !identity.MFAEnabled() {
		return models.ErrBadRequest
	}

	valid, err := s.totp.ValidateCode(*identity.TOTPSecret, code)
	if err != nil || !valid {
		return models.ErrInvalidCredentials
	}

	if err := s.store.SetTOTPSecret(ctx, staffID, nil); err != nil {
		return err
	}

	s.versions.Invalidate(staffID)
	s.auditLogger.LogAccountAction("mfa_disabled", staffID, staffID, nil)
	return nil
}
