package repository

import (
	"context"

	"tenantauth/internal/user/domain"
)

// Repository defines persistence for users. All lookups are tenant-scoped.
type Repository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, tenantID, id, hash string) error
	// EnableOTPAuth marks the user as allowed to sign in by email code.
	EnableOTPAuth(ctx context.Context, tenantID, id string) error
}
