package models

import "time"

// LoginAttempt is the durable audit record of one authentication attempt.
// The in-memory throttle ledger makes the lockout decision; this table keeps
// the history a successful login does not erase.
type LoginAttempt struct {
	ID            int64
	Username      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason *string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Failure reasons recorded on login attempts.
const (
	FailureInvalidCredentials = "invalid_credentials"
	FailureLocked             = "locked"
	FailureAccountDisabled    = "account_disabled"
	FailureMFARequired        = "mfa_required"
	FailureMFAInvalid         = "mfa_invalid"
)
