package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tenantauth/internal/verificationcode/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a verification code repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const codeColumns = `id, tenant_id, type, code, data, method, callback_url, expires_at, used_at, created_at`

func scanCode(s interface {
	Scan(dest ...any) error
}) (*domain.Code, error) {
	var (
		c           domain.Code
		callbackURL sql.NullString
		usedAt      sql.NullTime
	)
	err := s.Scan(&c.ID, &c.TenantID, &c.Type, &c.Code, &c.Data, &c.Method,
		&callbackURL, &c.ExpiresAt, &usedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if callbackURL.Valid {
		c.CallbackURL = &callbackURL.String
	}
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedAt = &t
	}
	return &c, nil
}

// Create persists the code row. The row must have ID, TenantID, Type, and Code set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Code) error {
	const q = `INSERT INTO verification_codes (id, tenant_id, type, code, data, method, callback_url, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9)`
	var callbackURL any
	if c.CallbackURL != nil {
		callbackURL = *c.CallbackURL
	}
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.TenantID, c.Type, c.Code, []byte(c.Data), []byte(c.Method),
		callbackURL, c.ExpiresAt, c.CreatedAt)
	return err
}

// GetByCode returns the row for (tenant, type, code), or nil if not found.
func (r *PostgresRepository) GetByCode(ctx context.Context, tenantID string, typ domain.CodeType, code string) (*domain.Code, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+codeColumns+` FROM verification_codes
		 WHERE tenant_id = $1 AND type = $2 AND code = $3`,
		tenantID, typ, code)
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Consume atomically transitions the row from unused to used. The row lock
// taken by FOR UPDATE serializes concurrent redeemers of the same code; the
// conditional update is the unused→used transition, so exactly one concurrent
// caller sees consumed == true and the rest observe the already-used row.
func (r *PostgresRepository) Consume(ctx context.Context, tenantID string, typ domain.CodeType, code string, now time.Time) (*domain.Code, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+codeColumns+` FROM verification_codes
		 WHERE tenant_id = $1 AND type = $2 AND code = $3
		 FOR UPDATE`,
		tenantID, typ, code)
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if c.UsedAt != nil || c.Expired(now) {
		return c, false, tx.Commit()
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE verification_codes SET used_at = $4
		 WHERE tenant_id = $1 AND type = $2 AND code = $3 AND used_at IS NULL`,
		tenantID, typ, code, now)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	if n == 0 {
		// Lost the race despite the row lock; report the row as already used.
		return c, false, nil
	}
	used := now
	c.UsedAt = &used
	return c, true, nil
}
