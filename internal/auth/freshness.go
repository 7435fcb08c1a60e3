package auth

import (
	"time"

	"github.com/strandnet/console/internal/models"
)

// FreshnessGuard rejects sessions whose bearer has been idle too long,
// independent of token validity. It never touches token_version: a stale
// session forces re-authentication without revoking concurrent sessions.
type FreshnessGuard struct {
	idleTimeout time.Duration
	now         func() time.Time
}

func NewFreshnessGuard(idleTimeout time.Duration) *FreshnessGuard {
	return &FreshnessGuard{
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// CheckIdle returns ErrSessionExpired when the identity's last observed
// activity is older than the idle threshold. A nil last_seen_at (an account
// that has never completed a request) is treated as fresh.
func (g *FreshnessGuard) CheckIdle(identity *models.StaffIdentity) error {
	if identity.LastSeenAt == nil {
		return nil
	}
	if g.now().Sub(*identity.LastSeenAt) > g.idleTimeout {
		return models.ErrSessionExpired
	}
	return nil
}
