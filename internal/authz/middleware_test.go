package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/models"
)

func permissionRequest(role string) *http.Request {
	req := httptest.NewRequest("GET", "/staff", nil)
	if role == "" {
		return req
	}
	sc := &auth.StaffContext{StaffID: 1, Username: "tester", Role: role}
	return req.WithContext(auth.WithStaffContext(req.Context(), sc))
}

func runPermission(t *testing.T, role, action string) *httptest.ResponseRecorder {
	t.Helper()
	mw := RequirePermission(NewResolver(), action)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, permissionRequest(role))
	return w
}

func TestRequirePermission_Allowed(t *testing.T) {
	w := runPermission(t, models.RoleStaff, ActionStaffList)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_Denied(t *testing.T) {
	w := runPermission(t, models.RoleSales, ActionStaffList)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermission_AdminAlwaysAllowed(t *testing.T) {
	w := runPermission(t, models.RoleAdmin, ActionMetricsRead)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_NoContext(t *testing.T) {
	w := runPermission(t, "", ActionStaffList)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
