package background

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockAttemptStore struct {
	calls   int
	deleted int64
}

func (m *mockAttemptStore) CleanupExpired(ctx context.Context) (int64, error) {
	m.calls++
	return m.deleted, nil
}

type mockPruner struct {
	calls int
}

func (m *mockPruner) Prune() int {
	m.calls++
	return 2
}

func TestCleanupManager_RunsImmediatelyAndStops(t *testing.T) {
	attempts := &mockAttemptStore{deleted: 3}
	pruner := &mockPruner{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cm := NewCleanupManager(attempts, pruner, logger, 1*time.Hour)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	// The first pass runs on startup, before the first tick.
	assert.Eventually(t, func() bool {
		return attempts.calls >= 1 && pruner.calls >= 1
	}, time.Second, 10*time.Millisecond)

	cm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}

func TestCleanupManager_ContextCancelStops(t *testing.T) {
	attempts := &mockAttemptStore{}
	pruner := &mockPruner{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cm := NewCleanupManager(attempts, pruner, logger, 1*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not honor context cancellation")
	}
}
