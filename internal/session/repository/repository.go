package repository

import (
	"context"
	"time"

	"tenantauth/internal/session/domain"
)

// Repository defines persistence for sessions. Refresh lookups are by token
// hash; the raw token is never stored or queried.
type Repository interface {
	// GetByRefreshTokenHash returns the session holding the hash, or nil if
	// not found. The hash is globally unique so no tenant scope is needed;
	// callers still check the tenant on the returned row.
	GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Revoke marks the session revoked at now. Revoking an already revoked
	// session is a no-op.
	Revoke(ctx context.Context, tenantID, id string, now time.Time) error
	// RevokeAllByUser revokes every active session of the user except the one
	// with exceptSessionID. Empty exceptSessionID revokes all of them.
	RevokeAllByUser(ctx context.Context, tenantID, userID, exceptSessionID string, now time.Time) error
	UpdateLastUsed(ctx context.Context, tenantID, id string, at time.Time) error
}
