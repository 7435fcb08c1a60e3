package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strandnet/console/internal/handlers"
	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/services"
)

func TestMFASetupEndpoint(t *testing.T) {
	mock := &handlers.MockMFAService{
		SetupFunc: func(ctx context.Context, staffID int64) (*services.MFASetupResponse, error) {
			return &services.MFASetupResponse{Secret: "SECRET", QRCodeURL: "data:image/png;base64,xx"}, nil
		},
	}
	handler := handlers.NewMFAHandler(mock)

	req := handlers.NewTestRequest(t, "POST", "/identity/mfa/setup", nil)
	req = handlers.WithStaffContext(req, 7, "alice", models.RoleStaff)

	w := httptest.NewRecorder()
	handler.Setup(w, req)

	var resp services.MFASetupResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "SECRET", resp.Secret)
}

func TestMFASetupEndpoint_AlreadyEnabled(t *testing.T) {
	mock := &handlers.MockMFAService{
		SetupFunc: func(ctx context.Context, staffID int64) (*services.MFASetupResponse, error) {
			return nil, models.ErrConflict
		},
	}
	handler := handlers.NewMFAHandler(mock)

	req := handlers.NewTestRequest(t, "POST", "/identity/mfa/setup", nil)
	req = handlers.WithStaffContext(req, 7, "alice", models.RoleStaff)

	w := httptest.NewRecorder()
	handler.Setup(w, req)

	assert.Equal(t, 409, w.Code)
}

func TestMFAEnableEndpoint_BadCode(t *testing.T) {
	mock := &handlers.MockMFAService{
		EnableFunc: func(ctx context.Context, staffID int64, secret, code string) error {
			return models.ErrInvalidCredentials
		},
	}
	handler := handlers.NewMFAHandler(mock)

	req := handlers.NewTestRequest(t, "POST", "/identity/mfa/enable", handlers.EnableMFARequest{
		Secret: "SECRET",
		Code:   "123456",
	})
	req = handlers.WithStaffContext(req, 7, "alice", models.RoleStaff)

	w := httptest.NewRecorder()
	handler.Enable(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestMFAEnableEndpoint_Success(t *testing.T) {
	mock := &handlers.MockMFAService{
		EnableFunc: func(ctx context.Context, staffID int64, secret, code string) error {
			assert.Equal(t, int64(7), staffID)
			return nil
		},
	}
	handler := handlers.NewMFAHandler(mock)

	req := handlers.NewTestRequest(t, "POST", "/identity/mfa/enable", handlers.EnableMFARequest{
		Secret: "SECRET",
		Code:   "123456",
	})
	req = handlers.WithStaffContext(req, 7, "alice", models.RoleStaff)

	w := httptest.NewRecorder()
	handler.Enable(w, req)

	assert.Equal(t, 204, w.Code)
}

func TestMFADisableEndpoint_NotEnabled(t *testing.T) {
	mock := &handlers.MockMFAService{
		DisableFunc: func(ctx context.Context, staffID int64, code string) error {
			return models.ErrBadRequest
		},
	}
	handler := handlers.NewMFAHandler(mock)

	req := handlers.NewTestRequest(t, "POST", "/identity/mfa/disable", handlers.DisableMFARequest{
		Code: "123456",
	})
	req = handlers.WithStaffContext(req, 7, "alice", models.RoleStaff)

	w := httptest.NewRecorder()
	handler.Disable(w, req)

	assert.Equal(t, 400, w.Code)
}
