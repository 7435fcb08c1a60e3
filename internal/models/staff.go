package models

import (
	"time"
)

// Role codes assigned to staff accounts.
const (
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
	RoleSales      = "sales"
	RoleUnassigned = "unassigned"
)

// Account statuses. Archived is terminal.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
	StatusArchived = "archived"
)

// StaffIdentity is one employee account in the back-office console.
type StaffIdentity struct {
	ID            int64
	Username      string
	PasswordHash  string
	TOTPSecret    *string // base32 secret, set iff MFA is enabled
	Role          string
	Status        string
	TokenVersion  int64      // bumped to invalidate all outstanding tokens
	LastSeenAt    *time.Time // nil until first successful login
	BootstrapMode bool       // first-run admin, bypasses lockout counting
	SetupMode     bool       // account still in first-run configuration
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MFAEnabled reports whether the account requires a TOTP second factor.
func (s *StaffIdentity) MFAEnabled() bool {
	return s.TOTPSecret != nil && *s.TOTPSecret != ""
}

// IsActive reports whether the account may authenticate.
func (s *StaffIdentity) IsActive() bool {
	return s.Status == StatusActive
}

// ValidRole reports whether role is one of the known role codes.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleSales, RoleUnassigned:
		return true
	}
	return false
}

// ValidStatus reports whether status is one of the known account statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusDisabled, StatusArchived:
		return true
	}
	return false
}
