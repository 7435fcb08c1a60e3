package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strandnet/console/internal/database"
	"github.com/strandnet/console/internal/models"
)

const staffColumns = `id, username, password_hash, totp_secret, role, status, token_version, last_seen_at, bootstrap_mode, setup_mode, created_at, updated_at`

type StaffRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewStaffRepository(db *database.DB) *StaffRepository {
	return &StaffRepository{db: db, pool: db.Pool}
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStaffRow(scanner rowScanner) (*models.StaffIdentity, error) {
	var s models.StaffIdentity
	var totpSecret *string
	var lastSeenAt *time.Time

	err := scanner.Scan(
		&s.ID, &s.Username, &s.PasswordHash, &totpSecret,
		&s.Role, &s.Status, &s.TokenVersion, &lastSeenAt,
		&s.BootstrapMode, &s.SetupMode,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	s.TOTPSecret = totpSecret
	s.LastSeenAt = lastSeenAt

	return &s, nil
}

func scanStaffRows(rows pgx.Rows) ([]*models.StaffIdentity, error) {
	defer rows.Close()

	staff := make([]*models.StaffIdentity, 0)

	for rows.Next() {
		s, err := scanStaffRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff row: %w", err)
		}
		staff = append(staff, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return staff, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.StaffIdentity, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`
	return scanStaffRow(r.pool.QueryRow(ctx, query, id))
}

func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*models.StaffIdentity, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE username = $1`
	return scanStaffRow(r.pool.QueryRow(ctx, query, username))
}

func (r *StaffRepository) List(ctx context.Context, limit, offset int) ([]*models.StaffIdentity, error) {
	query := `SELECT ` + staffColumns + ` FROM staff ORDER BY username LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}

	return scanStaffRows(rows)
}

func (r *StaffRepository) Create(ctx context.Context, s *models.StaffIdentity) (*models.StaffIdentity, error) {
	if s.Role == "" {
		s.Role = models.RoleUnassigned
	}
	if s.Status == "" {
		s.Status = models.StatusActive
	}

	query := `
		INSERT INTO staff (username, password_hash, totp_secret, role, status, bootstrap_mode, setup_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + staffColumns

	return scanStaffRow(r.pool.QueryRow(ctx, query,
		s.Username, s.PasswordHash, s.TOTPSecret, s.Role, s.Status, s.BootstrapMode, s.SetupMode,
	))
}

// GetTokenVersion fetches only the current token_version for an identity.
// Used on the token validation hot path.
func (r *StaffRepository) GetTokenVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := r.pool.QueryRow(ctx, `SELECT token_version FROM staff WHERE id = $1`, id).Scan(&version)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return version, nil
}

// BumpTokenVersion invalidates every outstanding token for the identity.
func (r *StaffRepository) BumpTokenVersion(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE staff SET token_version = token_version + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// TouchLastSeen records activity for the session freshness guard.
func (r *StaffRepository) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE staff SET last_seen_at = $1 WHERE id = $2`, at, id)
	return database.MapPostgresError(err)
}

// UpdatePassword replaces the password hash and bumps token_version so every
// token issued before the change stops validating.
func (r *StaffRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE staff
		SET password_hash = $1, token_version = token_version + 1, setup_mode = FALSE, updated_at = now()
		WHERE id = $2`, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetTOTPSecret stores (or clears) the TOTP secret. Enabling or disabling MFA
// is a security-relevant edit, so token_version is bumped.
func (r *StaffRepository) SetTOTPSecret(ctx context.Context, id int64, secret *string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE staff
		SET totp_secret = $1, token_version = token_version + 1, updated_at = now()
		WHERE id = $2`, secret, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *StaffRepository) CountActiveAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM staff WHERE role = $1 AND status = $2`,
		models.RoleAdmin, models.StatusActive).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// CountActiveNonBootstrapAdmins reports whether a normal admin exists yet.
// The bootstrap account's lockout bypass expires once this is non-zero.
func (r *StaffRepository) CountActiveNonBootstrapAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM staff WHERE role = $1 AND status = $2 AND bootstrap_mode = FALSE`,
		models.RoleAdmin, models.StatusActive).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// UpdateRoleGuarded changes an identity's role inside one transaction that
// locks every active admin row first. Demoting the sole remaining active
// admin fails with ErrLastAdminProtected; two concurrent demotions cannot
// both observe a count of two.
func (r *StaffRepository) UpdateRoleGuarded(ctx context.Context, id int64, role string) (*models.StaffIdentity, error) {
	var updated *models.StaffIdentity

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		target, err := lockStaffRow(ctx, tx, id)
		if err != nil {
			return err
		}

		if target.Role == models.RoleAdmin && target.Status == models.StatusActive && role != models.RoleAdmin {
			count, err := lockAndCountActiveAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if count <= 1 {
				return models.ErrLastAdminProtected
			}
		}

		updated, err = scanStaffRow(tx.QueryRow(ctx, `
			UPDATE staff
			SET role = $1, token_version = token_version + 1, updated_at = now()
			WHERE id = $2
			RETURNING `+staffColumns, role, id))
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdateStatusGuarded changes an identity's status under the same admin-count
// guard as UpdateRoleGuarded. Archived is terminal.
func (r *StaffRepository) UpdateStatusGuarded(ctx context.Context, id int64, status string) (*models.StaffIdentity, error) {
	var updated *models.StaffIdentity

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		target, err := lockStaffRow(ctx, tx, id)
		if err != nil {
			return err
		}

		if target.Status == models.StatusArchived {
			return models.ErrConflict
		}

		if target.Role == models.RoleAdmin && target.Status == models.StatusActive && status != models.StatusActive {
			count, err := lockAndCountActiveAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if count <= 1 {
				return models.ErrLastAdminProtected
			}
		}

		updated, err = scanStaffRow(tx.QueryRow(ctx, `
			UPDATE staff
			SET status = $1, token_version = token_version + 1, updated_at = now()
			WHERE id = $2
			RETURNING `+staffColumns, status, id))
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func lockStaffRow(ctx context.Context, tx pgx.Tx, id int64) (*models.StaffIdentity, error) {
	return scanStaffRow(tx.QueryRow(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = $1 FOR UPDATE`, id))
}

// lockAndCountActiveAdmins takes row locks on all active admin rows before
// counting, serializing concurrent demotions against the same pool of admins.
func lockAndCountActiveAdmins(ctx context.Context, tx pgx.Tx) (int64, error) {
	rows, err := tx.Query(ctx,
		`SELECT id FROM staff WHERE role = $1 AND status = $2 FOR UPDATE`,
		models.RoleAdmin, models.StatusActive)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	return count, nil
}
