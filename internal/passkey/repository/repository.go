package repository

import (
	"context"

	"tenantauth/internal/passkey/domain"
)

// Repository defines persistence for passkey credentials.
type Repository interface {
	// GetByCredentialID returns the credential for (tenant, credentialID), or nil.
	GetByCredentialID(ctx context.Context, tenantID, credentialID string) (*domain.Credential, error)
	Create(ctx context.Context, c *domain.Credential) error
	// UpdateCounter stores the signature counter reported by the verifier.
	UpdateCounter(ctx context.Context, tenantID, id string, counter uint32) error
}
