package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tenantauth/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, tenant_id, COALESCE(primary_email, ''), COALESCE(password_hash, ''),
	COALESCE(totp_secret, ''), requires_totp_mfa, otp_auth_enabled, created_at, updated_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.TenantID, &u.PrimaryEmail, &u.PasswordHash,
		&u.TOTPSecret, &u.RequiresTOTPMFA, &u.OTPAuthEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns the user for (tenantID, id), or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanUser(row)
}

// Create persists the user. The user must have ID and TenantID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	const q = `INSERT INTO users (id, tenant_id, primary_email, password_hash, totp_secret,
		requires_totp_mfa, otp_auth_enabled, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.TenantID, u.PrimaryEmail, u.PasswordHash, u.TOTPSecret,
		u.RequiresTOTPMFA, u.OTPAuthEnabled, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// UpdatePasswordHash replaces the stored password hash for (tenantID, id).
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, tenantID, id, hash string) error {
	const q = `UPDATE users SET password_hash = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, q, tenantID, id, hash, time.Now().UTC())
	return err
}

// EnableOTPAuth marks the user as allowed to sign in by email code.
func (r *PostgresRepository) EnableOTPAuth(ctx context.Context, tenantID, id string) error {
	const q = `UPDATE users SET otp_auth_enabled = TRUE, updated_at = $3 WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, q, tenantID, id, time.Now().UTC())
	return err
}
