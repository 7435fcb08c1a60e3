package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/obs"
	pkglogger "github.com/strandnet/console/pkg/logger"
)

// MockStaffStore implements StaffStore with function fields.
type MockStaffStore struct {
	GetByUsernameFunc                 func(ctx context.Context, username string) (*models.StaffIdentity, error)
	TouchLastSeenFunc                 func(ctx context.Context, id int64, at time.Time) error
	CountActiveNonBootstrapAdminsFunc func(ctx context.Context) (int64, error)
}

func (m *MockStaffStore) GetByUsername(ctx context.Context, username string) (*models.StaffIdentity, error) {
	return m.GetByUsernameFunc(ctx, username)
}

func (m *MockStaffStore) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	if m.TouchLastSeenFunc != nil {
		return m.TouchLastSeenFunc(ctx, id, at)
	}
	return nil
}

func (m *MockStaffStore) CountActiveNonBootstrapAdmins(ctx context.Context) (int64, error) {
	if m.CountActiveNonBootstrapAdminsFunc != nil {
		return m.CountActiveNonBootstrapAdminsFunc(ctx)
	}
	return 1, nil
}

// MockAttemptRecorder implements AttemptRecorder with a function field.
type MockAttemptRecorder struct {
	RecordAttemptFunc func(ctx context.Context, attempt *models.LoginAttempt) error
	Recorded          []*models.LoginAttempt
}

func (m *MockAttemptRecorder) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	m.Recorded = append(m.Recorded, attempt)
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

// MockStaffManager implements StaffManager with function fields.
type MockStaffManager struct {
	GetByIDFunc             func(ctx context.Context, id int64) (*models.StaffIdentity, error)
	GetByUsernameFunc       func(ctx context.Context, username string) (*models.StaffIdentity, error)
	ListFunc                func(ctx context.Context, limit, offset int) ([]*models.StaffIdentity, error)
	CreateFunc              func(ctx context.Context, s *models.StaffIdentity) (*models.StaffIdentity, error)
	UpdateRoleGuardedFunc   func(ctx context.Context, id int64, role string) (*models.StaffIdentity, error)
	UpdateStatusGuardedFunc func(ctx context.Context, id int64, status string) (*models.StaffIdentity, error)
	UpdatePasswordFunc      func(ctx context.Context, id int64, passwordHash string) error
	BumpTokenVersionFunc    func(ctx context.Context, id int64) error
	CountActiveAdminsFunc   func(ctx context.Context) (int64, error)
}

func (m *MockStaffManager) GetByID(ctx context.Context, id int64) (*models.StaffIdentity, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockStaffManager) GetByUsername(ctx context.Context, username string) (*models.StaffIdentity, error) {
	return m.GetByUsernameFunc(ctx, username)
}

func (m *MockStaffManager) List(ctx context.Context, limit, offset int) ([]*models.StaffIdentity, error) {
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockStaffManager) Create(ctx context.Context, s *models.StaffIdentity) (*models.StaffIdentity, error) {
	return m.CreateFunc(ctx, s)
}

func (m *MockStaffManager) UpdateRoleGuarded(ctx context.Context, id int64, role string) (*models.StaffIdentity, error) {
	return m.UpdateRoleGuardedFunc(ctx, id, role)
}

func (m *MockStaffManager) UpdateStatusGuarded(ctx context.Context, id int64, status string) (*models.StaffIdentity, error) {
	return m.UpdateStatusGuardedFunc(ctx, id, status)
}

func (m *MockStaffManager) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return m.UpdatePasswordFunc(ctx, id, passwordHash)
}

func (m *MockStaffManager) BumpTokenVersion(ctx context.Context, id int64) error {
	return m.BumpTokenVersionFunc(ctx, id)
}

func (m *MockStaffManager) CountActiveAdmins(ctx context.Context) (int64, error) {
	if m.CountActiveAdminsFunc != nil {
		return m.CountActiveAdminsFunc(ctx)
	}
	return 1, nil
}

// MockMFAStaffStore implements MFAStaffStore with function fields.
type MockMFAStaffStore struct {
	GetByIDFunc       func(ctx context.Context, id int64) (*models.StaffIdentity, error)
	SetTOTPSecretFunc func(ctx context.Context, id int64, secret *string) error
}

func (m *MockMFAStaffStore) GetByID(ctx context.Context, id int64) (*models.StaffIdentity, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockMFAStaffStore) SetTOTPSecret(ctx context.Context, id int64, secret *string) error {
	return m.SetTOTPSecretFunc(ctx, id, secret)
}

// MockVersionInvalidator records invalidated staff IDs.
type MockVersionInvalidator struct {
	Invalidated []int64
}

func (m *MockVersionInvalidator) Invalidate(staffID int64) {
	m.Invalidated = append(m.Invalidated, staffID)
}

// fixedVersionSource satisfies auth.TokenVersionSource for token issuance in
// service tests.
type fixedVersionSource struct {
	version int64
}

func (f *fixedVersionSource) GetTokenVersion(ctx context.Context, staffID int64) (int64, error) {
	return f.version, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}

func testMetrics() *obs.Metrics {
	return obs.NewMetricsWith(prometheus.NewRegistry())
}
