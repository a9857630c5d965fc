package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenantauth/internal/contactchannel/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a contact channel repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const channelColumns = `id, tenant_id, user_id, type, value, is_verified, used_for_auth, created_at`

func scanChannel(row *sql.Row) (*domain.ContactChannel, error) {
	var c domain.ContactChannel
	err := row.Scan(&c.ID, &c.TenantID, &c.UserID, &c.Type, &c.Value, &c.IsVerified, &c.UsedForAuth, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetByID returns the channel for (tenantID, id), or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.ContactChannel, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM contact_channels WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanChannel(row)
}

// GetAuthChannel returns the auth-enabled channel for (tenant, type, value), or nil.
func (r *PostgresRepository) GetAuthChannel(ctx context.Context, tenantID string, typ domain.ChannelType, value string) (*domain.ContactChannel, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM contact_channels
		 WHERE tenant_id = $1 AND type = $2 AND value = $3 AND used_for_auth`,
		tenantID, typ, value)
	return scanChannel(row)
}

// Create persists the channel. The channel must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.ContactChannel) error {
	const q = `INSERT INTO contact_channels (id, tenant_id, user_id, type, value, is_verified, used_for_auth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.TenantID, c.UserID, c.Type, c.Value, c.IsVerified, c.UsedForAuth, c.CreatedAt)
	return err
}

// MarkVerified sets is_verified on the channel.
func (r *PostgresRepository) MarkVerified(ctx context.Context, tenantID, id string) error {
	const q = `UPDATE contact_channels SET is_verified = TRUE WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, q, tenantID, id)
	return err
}
