package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/obs"
	"github.com/strandnet/console/internal/throttle"
	pkgauth "github.com/strandnet/console/pkg/auth"
	pkglogger "github.com/strandnet/console/pkg/logger"
)

// ErrMFARequired signals that credentials were accepted but a TOTP code is
// still needed. Surfaces as 401 with a distinct detail so the UI can prompt.
var ErrMFARequired = errors.New("second factor required")

// LockedError carries the retry-after hint for an active lockout.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error {
	return models.ErrLocked
}

// StaffStore is the subset of the staff repository the authenticator needs.
type StaffStore interface {
	GetByUsername(ctx context.Context, username string) (*models.StaffIdentity, error)
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
	CountActiveNonBootstrapAdmins(ctx context.Context) (int64, error)
}

// AttemptRecorder persists the durable audit trail of login attempts.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
}

// LoginResponse is returned on full authentication success.
type LoginResponse struct {
	Token         string `json:"token"`
	Role          string `json:"role"`
	BootstrapMode bool   `json:"bootstrap_mode"`
	SetupMode     bool   `json:"setup_mode"`
	ExpiresAt     string `json:"expires_at"`
}

// AuthService orchestrates password and TOTP verification, consulting the
// throttle ledger before the credential store and the token issuer after
// success.
type AuthService struct {
	store        StaffStore
	attempts     AttemptRecorder
	ledger       *throttle.Ledger
	issuer       *auth.TokenIssuer
	totp         *auth.TOTPManager
	metrics      *obs.Metrics
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	storeTimeout time.Duration
	retention    time.Duration // how long attempt rows are kept
	// bcrypt hash compared against when the username does not exist, so the
	// miss path costs the same as a real comparison.
	dummyHash string
}

func NewAuthService(
	store StaffStore,
	attempts AttemptRecorder,
	ledger *throttle.Ledger,
	issuer *auth.TokenIssuer,
	totp *auth.TOTPManager,
	metrics *obs.Metrics,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	storeTimeout time.Duration,
	retention time.Duration,
) *AuthService {
	dummyHash, err := pkgauth.HashPassword("console-dummy-comparison-value")
	if err != nil {
		// bcrypt only fails on invalid cost; this input is fixed.
		dummyHash = ""
	}

	return &AuthService{
		store:        store,
		attempts:     attempts,
		ledger:       ledger,
		issuer:       issuer,
		totp:         totp,
		metrics:      metrics,
		logger:       logger,
		auditLogger:  auditLogger,
		storeTimeout: storeTimeout,
		retention:    retention,
		dummyHash:    dummyHash,
	}
}

// Login runs the full authentication flow:
// lockout check → identity lookup → password → status → TOTP → token.
// The lockout check runs before any store lookup so a locked subject cannot
// probe for username existence via response timing.
func (s *AuthService) Login(ctx context.Context, username, password, totpCode, ipAddress, userAgent string) (*LoginResponse, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	if until, locked := s.ledger.CheckLocked(username, ipAddress); locked {
		s.recordAttempt(ctx, username, ipAddress, userAgent, false, models.FailureLocked)
		s.metrics.LoginAttempts.WithLabelValues(obs.OutcomeLocked).Inc()
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IPAddress:     ipAddress,
			FailureReason: "locked",
			Success:       false,
		})
		return nil, &LockedError{Until: until}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	identity, err := s.store.GetByUsername(lookupCtx, username)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same bcrypt cost as the hit path.
			_ = pkgauth.ComparePassword(s.dummyHash, password)
			s.failCredentials(ctx, nil, username, ipAddress, userAgent)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up identity", slog.Any("error", err))
		// Store failures are fail-closed: the attempt is rejected.
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(identity.PasswordHash, password); err != nil {
		s.failCredentials(ctx, identity, username, ipAddress, userAgent)
		return nil, models.ErrInvalidCredentials
	}

	if !identity.IsActive() {
		s.recordAttempt(ctx, username, ipAddress, userAgent, false, models.FailureAccountDisabled)
		s.metrics.LoginAttempts.WithLabelValues(obs.OutcomeRejected).Inc()
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			StaffID:       identity.ID,
			IPAddress:     ipAddress,
			FailureReason: "account_" + identity.Status,
			Success:       false,
		})
		return nil, models.ErrAccountDisabled
	}

	if identity.MFAEnabled() {
		if totpCode == "" {
			s.recordAttempt(ctx, username, ipAddress, userAgent, false, models.FailureMFARequired)
			return nil, ErrMFARequired
		}
		valid, err := s.totp.ValidateCode(*identity.TOTPSecret, totpCode)
		if err != nil || !valid {
			s.recordAttempt(ctx, username, ipAddress, userAgent, false, models.FailureMFAInvalid)
			if !s.bootstrapBypass(ctx, identity) {
				s.ledger.RecordFailure(username, ipAddress)
			}
			s.metrics.LoginAttempts.WithLabelValues(obs.OutcomeRejected).Inc()
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				StaffID:       identity.ID,
				IPAddress:     ipAddress,
				FailureReason: "mfa_invalid",
				Success:       false,
			})
			return nil, models.ErrInvalidCredentials
		}
	}

	s.ledger.RecordSuccess(username, ipAddress)
	s.recordAttempt(ctx, username, ipAddress, userAgent, true, "")

	now := time.Now()
	if err := s.store.TouchLastSeen(ctx, identity.ID, now); err != nil {
		s.logger.Warn("failed to update last_seen_at on login",
			slog.Int64("staff_id", identity.ID), slog.Any("error", err))
	}

	token, err := s.issuer.Issue(identity)
	if err != nil {
		s.logger.Error("failed to issue token",
			slog.Int64("staff_id", identity.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.metrics.LoginAttempts.WithLabelValues(obs.OutcomeSuccess).Inc()
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		StaffID:   identity.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &LoginResponse{
		Token:         token,
		Role:          identity.Role,
		BootstrapMode: identity.BootstrapMode,
		SetupMode:     identity.SetupMode,
		ExpiresAt:     now.Add(s.issuer.Lifetime()).UTC().Format(time.RFC3339),
	}, nil
}

// failCredentials records a failed password attempt on both throttle axes.
// Failures against the bootstrap account are not counted while the bypass is
// active, so first-run setup cannot brick itself; the bypass expires the
// moment a normal active admin exists.
func (s *AuthService) failCredentials(ctx context.Context, identity *models.StaffIdentity, username, ipAddress, userAgent string) {
	s.recordAttempt(ctx, username, ipAddress, userAgent, false, models.FailureInvalidCredentials)

	if identity == nil || !s.bootstrapBypass(ctx, identity) {
		s.ledger.RecordFailure(username, ipAddress)
		if _, locked := s.ledger.CheckLocked(username, ipAddress); locked {
			s.metrics.Lockouts.Inc()
		}
	}

	s.metrics.LoginAttempts.WithLabelValues(obs.OutcomeRejected).Inc()
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		IPAddress:     ipAddress,
		FailureReason: "invalid_credentials",
		Success:       false,
	})
}

func (s *AuthService) bootstrapBypass(ctx context.Context, identity *models.StaffIdentity) bool {
	if !identity.BootstrapMode {
		return false
	}
	count, err := s.store.CountActiveNonBootstrapAdmins(ctx)
	if err != nil {
		// Unknown state: treat the bypass as expired.
		return false
	}
	return count == 0
}

func (s *AuthService) recordAttempt(ctx context.Context, username, ipAddress, userAgent string, success bool, failureReason string) {
	attempt := &models.LoginAttempt{
		Username:  username,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   success,
		ExpiresAt: time.Now().Add(s.retention),
	}
	if failureReason != "" {
		attempt.FailureReason = &failureReason
	}

	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
	}
}
