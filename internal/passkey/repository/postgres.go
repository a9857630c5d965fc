package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenantauth/internal/passkey/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a passkey credential repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByCredentialID returns the credential for (tenant, credentialID), or nil if not found.
func (r *PostgresRepository) GetByCredentialID(ctx context.Context, tenantID, credentialID string) (*domain.Credential, error) {
	const q = `SELECT id, tenant_id, user_id, credential_id, public_key, counter, created_at
		FROM passkey_credentials WHERE tenant_id = $1 AND credential_id = $2`
	var c domain.Credential
	err := r.db.QueryRowContext(ctx, q, tenantID, credentialID).Scan(
		&c.ID, &c.TenantID, &c.UserID, &c.CredentialID, &c.PublicKey, &c.Counter, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Create persists the credential. The credential must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Credential) error {
	const q = `INSERT INTO passkey_credentials (id, tenant_id, user_id, credential_id, public_key, counter, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.TenantID, c.UserID, c.CredentialID, c.PublicKey, c.Counter, c.CreatedAt)
	return err
}

// UpdateCounter stores the signature counter reported by the verifier.
func (r *PostgresRepository) UpdateCounter(ctx context.Context, tenantID, id string, counter uint32) error {
	const q = `UPDATE passkey_credentials SET counter = $3 WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, q, tenantID, id, counter)
	return err
}
