package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/repositories"
)

func freshAttemptRepo(t *testing.T) *repositories.LoginAttemptRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.TruncateAll(context.Background()))
	return repositories.NewLoginAttemptRepository(testDB.DB)
}

func recordAttempt(t *testing.T, repo *repositories.LoginAttemptRepository, username string, success bool, reason string, expiresAt time.Time) {
	t.Helper()
	attempt := &models.LoginAttempt{
		Username:  username,
		IPAddress: "203.0.113.10",
		UserAgent: "test-agent/1.0",
		Success:   success,
		ExpiresAt: expiresAt,
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}
	require.NoError(t, repo.RecordAttempt(context.Background(), attempt))
}

func TestLoginAttemptRepository_RecordAndQuery(t *testing.T) {
	repo := freshAttemptRepo(t)
	ctx := context.Background()
	horizon := time.Now().Add(30 * 24 * time.Hour)

	recordAttempt(t, repo, "alice", false, models.FailureInvalidCredentials, horizon)
	recordAttempt(t, repo, "alice", true, "", horizon)
	recordAttempt(t, repo, "bob", false, models.FailureLocked, horizon)

	attempts, err := repo.GetRecentByUsername(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	// Newest first.
	assert.True(t, attempts[0].Success)
	assert.Nil(t, attempts[0].FailureReason)
	require.NotNil(t, attempts[1].FailureReason)
	assert.Equal(t, models.FailureInvalidCredentials, *attempts[1].FailureReason)
}

func TestLoginAttemptRepository_CleanupExpired(t *testing.T) {
	repo := freshAttemptRepo(t)
	ctx := context.Background()

	recordAttempt(t, repo, "alice", false, models.FailureInvalidCredentials, time.Now().Add(-time.Hour))
	recordAttempt(t, repo, "alice", false, models.FailureInvalidCredentials, time.Now().Add(time.Hour))

	deleted, err := repo.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	attempts, err := repo.GetRecentByUsername(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}
