package repository

import (
	"context"

	"tenantauth/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) error
}
