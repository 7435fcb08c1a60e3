package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptStore prunes the login attempt audit trail.
type AttemptStore interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// LedgerPruner drops stale throttle entries from memory.
type LedgerPruner interface {
	Prune() int
}

// CleanupManager periodically removes expired login attempt rows and stale
// throttle ledger entries.
type CleanupManager struct {
	attempts AttemptStore
	ledger   LedgerPruner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attempts AttemptStore,
	ledger LedgerPruner,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		attempts: attempts,
		ledger:   ledger,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	pruned := cm.ledger.Prune()
	if pruned > 0 {
		cm.logger.Info("throttle ledger pruned", slog.Int("entries_removed", pruned))
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.attempts.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup login attempts", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("login attempt cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
