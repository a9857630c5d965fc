package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"tenantauth/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the tenant for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	const q = `SELECT id, display_name, trusted_domains, allow_localhost,
		otp_enabled, password_enabled, passkey_enabled, sign_up_enabled, created_at
		FROM tenants WHERE id = $1`
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.DisplayName, pq.Array(&t.TrustedDomains), &t.AllowLocalhost,
		&t.OTPEnabled, &t.PasswordEnabled, &t.PasskeyEnabled, &t.SignUpEnabled, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Create persists the tenant. The tenant must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	const q = `INSERT INTO tenants (id, display_name, trusted_domains, allow_localhost,
		otp_enabled, password_enabled, passkey_enabled, sign_up_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.DisplayName, pq.Array(t.TrustedDomains), t.AllowLocalhost,
		t.OTPEnabled, t.PasswordEnabled, t.PasskeyEnabled, t.SignUpEnabled, t.CreatedAt,
	)
	return err
}
