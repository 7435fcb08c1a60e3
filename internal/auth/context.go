package auth

import (
	"context"
	"net/http"
)

// StaffContext is the identity resolved for one request. It is built at the
// boundary by the bearer middleware and threaded explicitly; there is no
// process-global current user.
type StaffContext struct {
	StaffID       int64
	Username      string
	Role          string
	BootstrapMode bool
	SetupMode     bool
}

type contextKey string

const staffContextKey contextKey = "staff"

// WithStaffContext returns a context carrying the resolved staff identity.
func WithStaffContext(ctx context.Context, sc *StaffContext) context.Context {
	return context.WithValue(ctx, staffContextKey, sc)
}

// StaffFromContext extracts the resolved identity from a request context.
// Returns nil when the request did not pass the bearer middleware.
func StaffFromContext(ctx context.Context) *StaffContext {
	sc, ok := ctx.Value(staffContextKey).(*StaffContext)
	if !ok {
		return nil
	}
	return sc
}

// StaffFromRequest is a convenience wrapper for handlers.
func StaffFromRequest(r *http.Request) *StaffContext {
	return StaffFromContext(r.Context())
}
