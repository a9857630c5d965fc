package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tenantauth/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, tenant_id, user_id, refresh_token_hash, expires_at, revoked_at, last_used_at, created_at`

func scanSession(row *sql.Row) (*domain.Session, error) {
	var (
		s          domain.Session
		revokedAt  sql.NullTime
		lastUsedAt sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.TenantID, &s.UserID, &s.RefreshTokenHash,
		&s.ExpiresAt, &revokedAt, &lastUsedAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	if lastUsedAt.Valid {
		s.LastUsedAt = &lastUsedAt.Time
	}
	return &s, nil
}

// GetByRefreshTokenHash returns the session holding the hash, or nil if not found.
func (r *PostgresRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1`, hash)
	return scanSession(row)
}

// Create persists the session. The session must have ID, TenantID, and
// RefreshTokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	const q = `INSERT INTO sessions (id, tenant_id, user_id, refresh_token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.TenantID, s.UserID, s.RefreshTokenHash, s.ExpiresAt, s.CreatedAt,
	)
	return err
}

// Revoke marks the session revoked at now, if it is not already revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, tenantID, id string, now time.Time) error {
	const q = `UPDATE sessions SET revoked_at = $3
		WHERE tenant_id = $1 AND id = $2 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, tenantID, id, now)
	return err
}

// RevokeAllByUser revokes every active session of the user except
// exceptSessionID. Empty exceptSessionID matches no row, so all go.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, tenantID, userID, exceptSessionID string, now time.Time) error {
	const q = `UPDATE sessions SET revoked_at = $4
		WHERE tenant_id = $1 AND user_id = $2 AND id <> $3 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, tenantID, userID, exceptSessionID, now)
	return err
}

// UpdateLastUsed sets the session's last-used timestamp.
func (r *PostgresRepository) UpdateLastUsed(ctx context.Context, tenantID, id string, at time.Time) error {
	const q = `UPDATE sessions SET last_used_at = $3 WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, q, tenantID, id, at)
	return err
}
