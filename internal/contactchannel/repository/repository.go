package repository

import (
	"context"

	"tenantauth/internal/contactchannel/domain"
)

// Repository defines persistence for contact channels.
type Repository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.ContactChannel, error)
	// GetAuthChannel returns the auth-enabled channel for (tenant, type, value),
	// or nil if none exists. This is the sign-in lookup.
	GetAuthChannel(ctx context.Context, tenantID string, typ domain.ChannelType, value string) (*domain.ContactChannel, error)
	Create(ctx context.Context, c *domain.ContactChannel) error
	// MarkVerified sets is_verified on the channel.
	MarkVerified(ctx context.Context, tenantID, id string) error
}
