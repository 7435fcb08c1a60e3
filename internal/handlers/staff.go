package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/services"
	pkgauth "github.com/strandnet/console/pkg/auth"
	pkghttp "github.com/strandnet/console/pkg/http"
)

// StaffServiceInterface defines the staff lifecycle operations the handler needs.
type StaffServiceInterface interface {
	Create(ctx context.Context, username, password, role string) (*services.StaffResponse, error)
	Get(ctx context.Context, id int64) (*services.StaffResponse, error)
	List(ctx context.Context, limit, offset int) ([]*services.StaffResponse, error)
	ChangeRole(ctx context.Context, actorID, targetID int64, role string) (*services.StaffResponse, error)
	ChangeStatus(ctx context.Context, actorID, targetID int64, status string) (*services.StaffResponse, error)
	RevokeSessions(ctx context.Context, actorID, targetID int64) error
}

// StaffHandler handles staff account management endpoints.
type StaffHandler struct {
	service StaffServiceInterface
}

func NewStaffHandler(service StaffServiceInterface) *StaffHandler {
	return &StaffHandler{service: service}
}

// CreateStaffRequest represents the request body for staff onboarding
type CreateStaffRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin staff sales unassigned"`
}

// UpdateRoleRequest represents the request body for a role change
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin staff sales unassigned"`
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active disabled archived"`
}

// List handles GET /staff
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	staff, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(staff)
}

// Get handles GET /staff/{id}
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Staff account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Create handles POST /staff
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Create(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		var pwErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Username already exists")
		case errors.As(err, &pwErr):
			pkghttp.WriteBadRequest(w, pwErr.Error())
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid request")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// UpdateRole handles PATCH /staff/{id}/role
func (h *StaffHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}

	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.ChangeRole(r.Context(), sc.StaffID, id, req.Role)
	if err != nil {
		writeStaffMutationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// UpdateStatus handles PATCH /staff/{id}/status
func (h *StaffHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}

	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.ChangeStatus(r.Context(), sc.StaffID, id, req.Status)
	if err != nil {
		writeStaffMutationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// RevokeSessions handles POST /staff/{id}/revoke-sessions
func (h *StaffHandler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := staffIDParam(w, r)
	if !ok {
		return
	}

	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.RevokeSessions(r.Context(), sc.StaffID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Staff account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func staffIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		pkghttp.WriteBadRequest(w, "Invalid staff id")
		return 0, false
	}
	return id, true
}

func writeStaffMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrLastAdminProtected):
		pkghttp.WriteError(w, http.StatusConflict, "last_admin_protected",
			"Cannot remove the last active admin")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Staff account not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Account state does not allow this change")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
