package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication outcomes
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLocked             = errors.New("too many failed attempts")
	ErrAccountDisabled    = errors.New("account is disabled")

	// Token / session outcomes
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrSessionExpired = errors.New("session expired due to inactivity")

	// Authorization
	ErrForbidden = errors.New("forbidden")

	// Staff mutations
	ErrLastAdminProtected = errors.New("cannot remove the last active admin")
)
