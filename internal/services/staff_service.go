package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/strandnet/console/internal/models"
	pkgauth "github.com/strandnet/console/pkg/auth"
	pkglogger "github.com/strandnet/console/pkg/logger"
)

// StaffManager is the subset of the staff repository used for account
// lifecycle operations.
type StaffManager interface {
	GetByID(ctx context.Context, id int64) (*models.StaffIdentity, error)
	GetByUsername(ctx context.Context, username string) (*models.StaffIdentity, error)
	List(ctx context.Context, limit, offset int) ([]*models.StaffIdentity, error)
	Create(ctx context.Context, s *models.StaffIdentity) (*models.StaffIdentity, error)
	UpdateRoleGuarded(ctx context.Context, id int64, role string) (*models.StaffIdentity, error)
	UpdateStatusGuarded(ctx context.Context, id int64, status string) (*models.StaffIdentity, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	BumpTokenVersion(ctx context.Context, id int64) error
	CountActiveAdmins(ctx context.Context) (int64, error)
}

// VersionInvalidator drops a cached token_version snapshot after a bump so
// in-process revocation takes effect immediately.
type VersionInvalidator interface {
	Invalidate(staffID int64)
}

// StaffResponse represents a staff account in HTTP responses. The password
// hash and TOTP secret never leave the service layer.
type StaffResponse struct {
	ID            int64   `json:"id"`
	Username      string  `json:"username"`
	Role          string  `json:"role"`
	Status        string  `json:"status"`
	MFAEnabled    bool    `json:"mfa_enabled"`
	SetupMode     bool    `json:"setup_mode"`
	BootstrapMode bool    `json:"bootstrap_mode"`
	LastSeenAt    *string `json:"last_seen_at"`
	CreatedAt     string  `json:"created_at"`
}

// StaffService handles staff account lifecycle. Role and status changes run
// through the repository's guarded updates so the last active admin can never
// be demoted, disabled, or archived.
type StaffService struct {
	repo        StaffManager
	versions    VersionInvalidator
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewStaffService(repo StaffManager, versions VersionInvalidator, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *StaffService {
	return &StaffService{
		repo:        repo,
		versions:    versions,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Create onboards a new staff account in setup mode.
func (s *StaffService) Create(ctx context.Context, username, password, role string) (*StaffResponse, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, models.ErrBadRequest
	}
	if role != "" && !models.ValidRole(role) {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.repo.Create(ctx, &models.StaffIdentity{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Status:       models.StatusActive,
		SetupMode:    true,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create staff account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("staff account created", slog.Int64("staff_id", created.ID))
	return staffToResponse(created), nil
}

func (s *StaffService) Get(ctx context.Context, id int64) (*StaffResponse, error) {
	identity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return staffToResponse(identity), nil
}

func (s *StaffService) List(ctx context.Context, limit, offset int) ([]*StaffResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	staff, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list staff", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	out := make([]*StaffResponse, 0, len(staff))
	for _, identity := range staff {
		out = append(out, staffToResponse(identity))
	}
	return out, nil
}

// ChangeRole updates the target's role. The guarded update bumps
// token_version, so outstanding tokens carrying the old role die with it.
func (s *StaffService) ChangeRole(ctx context.Context, actorID, targetID int64, role string) (*StaffResponse, error) {
	if !models.ValidRole(role) {
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.UpdateRoleGuarded(ctx, targetID, role)
	if err != nil {
		if errors.Is(err, models.ErrLastAdminProtected) {
			s.logger.Warn("role change rejected: last active admin",
				slog.Int64("target_id", targetID))
		}
		return nil, err
	}

	s.versions.Invalidate(targetID)
	s.auditLogger.LogAccountAction("role_changed", actorID, targetID,
		map[string]string{"role": role})

	return staffToResponse(updated), nil
}

// ChangeStatus updates the target's status under the last-admin guard.
// Archived accounts cannot be brought back.
func (s *StaffService) ChangeStatus(ctx context.Context, actorID, targetID int64, status string) (*StaffResponse, error) {
	if !models.ValidStatus(status) {
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.UpdateStatusGuarded(ctx, targetID, status)
	if err != nil {
		if errors.Is(err, models.ErrLastAdminProtected) {
			s.logger.Warn("status change rejected: last active admin",
				slog.Int64("target_id", targetID))
		}
		return nil, err
	}

	s.versions.Invalidate(targetID)
	s.auditLogger.LogAccountAction("status_changed", actorID, targetID,
		map[string]string{"status": status})

	return staffToResponse(updated), nil
}

// RevokeSessions bumps the target's token_version: the kill-switch for every
// outstanding token, with no revocation list.
func (s *StaffService) RevokeSessions(ctx context.Context, actorID, targetID int64) error {
	if err := s.repo.BumpTokenVersion(ctx, targetID); err != nil {
		return err
	}

	s.versions.Invalidate(targetID)
	s.auditLogger.LogAccountAction("sessions_revoked", actorID, targetID, nil)
	return nil
}

// ChangePassword verifies the current password before storing the new hash.
// The repository bumps token_version, invalidating all existing sessions.
func (s *StaffService) ChangePassword(ctx context.Context, staffID int64, currentPassword, newPassword string) error {
	identity, err := s.repo.GetByID(ctx, staffID)
	if err != nil {
		return err
	}

	if err := pkgauth.ComparePassword(identity.PasswordHash, currentPassword); err != nil {
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, staffID, hash); err != nil {
		return err
	}

	s.versions.Invalidate(staffID)
	s.auditLogger.LogAccountAction("password_changed", staffID, staffID, nil)
	return nil
}

func staffToResponse(identity *models.StaffIdentity) *StaffResponse {
	resp := &StaffResponse{
		ID:            identity.ID,
		Username:      identity.Username,
		Role:          identity.Role,
		Status:        identity.Status,
		MFAEnabled:    identity.MFAEnabled(),
		SetupMode:     identity.SetupMode,
		BootstrapMode: identity.BootstrapMode,
		CreatedAt:     identity.CreatedAt.UTC().Format(time.RFC3339),
	}
	if identity.LastSeenAt != nil {
		lastSeen := identity.LastSeenAt.UTC().Format(time.RFC3339)
		resp.LastSeenAt = &lastSeen
	}
	return resp
}
