package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strandnet/console/internal/database"
	"github.com/strandnet/console/internal/models"
)

type LoginAttemptRepository struct {
	pool *pgxpool.Pool
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{pool: db.Pool}
}

// RecordAttempt persists one attempt for the audit trail. The throttle ledger
// is the lockout authority; this table is history only.
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (username, ip_address, user_agent, success, failure_reason, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.Username, attempt.IPAddress, attempt.UserAgent,
		attempt.Success, attempt.FailureReason, attempt.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// GetRecentByUsername returns attempts against one username, newest first.
func (r *LoginAttemptRepository) GetRecentByUsername(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, username, ip_address, user_agent, success, failure_reason, created_at, expires_at
		FROM login_attempts
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)
	for rows.Next() {
		var a models.LoginAttempt
		err := rows.Scan(&a.ID, &a.Username, &a.IPAddress, &a.UserAgent,
			&a.Success, &a.FailureReason, &a.CreatedAt, &a.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return attempts, nil
}

// CleanupExpired deletes attempt rows past their retention horizon.
func (r *LoginAttemptRepository) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM login_attempts WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup login attempts: %w", err)
	}
	return result.RowsAffected(), nil
}
