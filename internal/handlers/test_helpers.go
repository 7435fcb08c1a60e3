package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/services"
	pkghttp "github.com/strandnet/console/pkg/http"
)

// NewTestRequest creates an HTTP request with a JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithStaffContext injects an authenticated staff context, as the bearer
// middleware would.
func WithStaffContext(req *http.Request, staffID int64, username, role string) *http.Request {
	sc := &auth.StaffContext{
		StaffID:  staffID,
		Username: username,
		Role:     role,
	}
	return req.WithContext(auth.WithStaffContext(req.Context(), sc))
}

// AssertJSONResponse checks status and decodes the JSON body into target
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks status, error code, and optional detail
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError, expectedDetail string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.Equal(t, expectedDetail, resp.Detail, "Error detail mismatch")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, username, password, totpCode, ipAddress, userAgent string) (*services.LoginResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, username, password, totpCode, ipAddress, userAgent string) (*services.LoginResponse, error) {
	return m.LoginFunc(ctx, username, password, totpCode, ipAddress, userAgent)
}

// MockStaffSelfService implements StaffSelfService for testing
type MockStaffSelfService struct {
	ChangePasswordFunc func(ctx context.Context, staffID int64, currentPassword, newPassword string) error
	RevokeSessionsFunc func(ctx context.Context, actorID, targetID int64) error
}

func (m *MockStaffSelfService) ChangePassword(ctx context.Context, staffID int64, currentPassword, newPassword string) error {
	return m.ChangePasswordFunc(ctx, staffID, currentPassword, newPassword)
}

func (m *MockStaffSelfService) RevokeSessions(ctx context.Context, actorID, targetID int64) error {
	return m.RevokeSessionsFunc(ctx, actorID, targetID)
}

// MockStaffService implements StaffServiceInterface for testing
type MockStaffService struct {
	CreateFunc         func(ctx context.Context, username, password, role string) (*services.StaffResponse, error)
	GetFunc            func(ctx context.Context, id int64) (*services.StaffResponse, error)
	ListFunc           func(ctx context.Context, limit, offset int) ([]*services.StaffResponse, error)
	ChangeRoleFunc     func(ctx context.Context, actorID, targetID int64, role string) (*services.StaffResponse, error)
	ChangeStatusFunc   func(ctx context.Context, actorID, targetID int64, status string) (*services.StaffResponse, error)
	RevokeSessionsFunc func(ctx context.Context, actorID, targetID int64) error
}

func (m *MockStaffService) Create(ctx context.Context, username, password, role string) (*services.StaffResponse, error) {
	return m.CreateFunc(ctx, username, password, role)
}

func (m *MockStaffService) Get(ctx context.Context, id int64) (*services.StaffResponse, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockStaffService) List(ctx context.Context, limit, offset int) ([]*services.StaffResponse, error) {
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockStaffService) ChangeRole(ctx context.Context, actorID, targetID int64, role string) (*services.StaffResponse, error) {
	return m.ChangeRoleFunc(ctx, actorID, targetID, role)
}

func (m *MockStaffService) ChangeStatus(ctx context.Context, actorID, targetID int64, status string) (*services.StaffResponse, error) {
	return m.ChangeStatusFunc(ctx, actorID, targetID, status)
}

func (m *MockStaffService) RevokeSessions(ctx context.Context, actorID, targetID int64) error {
	return m.RevokeSessionsFunc(ctx, actorID, targetID)
}

// MockMFAService implements MFAServiceInterface for testing
type MockMFAService struct {
	SetupFunc   func(ctx context.Context, staffID int64) (*services.MFASetupResponse, error)
	EnableFunc  func(ctx context.Context, staffID int64, secret, code string) error
	DisableFunc func(ctx context.Context, staffID int64, code string) error
}

func (m *MockMFAService) Setup(ctx context.Context, staffID int64) (*services.MFASetupResponse, error) {
	return m.SetupFunc(ctx, staffID)
}

func (m *MockMFAService) Enable(ctx context.Context, staffID int64, secret, code string) error {
	return m.EnableFunc(ctx, staffID, secret, code)
}

func (m *MockMFAService) Disable(ctx context.Context, staffID int64, code string) error {
	return m.DisableFunc(ctx, staffID, code)
}
