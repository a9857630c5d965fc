package repository

import (
	"context"
	"time"

	"tenantauth/internal/verificationcode/domain"
)

// Repository defines persistence for verification codes. Lookups are by the
// raw code value, scoped to tenant and type; callers never query by row id.
type Repository interface {
	Create(ctx context.Context, c *domain.Code) error
	// GetByCode returns the row for (tenant, type, code), or nil if not found.
	// It does not interpret expiry or used state.
	GetByCode(ctx context.Context, tenantID string, typ domain.CodeType, code string) (*domain.Code, error)
	// Consume atomically marks the row used at now, if and only if it exists,
	// is unused, and is unexpired at now. It returns the row as it was found
	// (nil when absent) and whether this call performed the transition.
	// Under concurrent calls for the same code exactly one caller observes
	// consumed == true.
	Consume(ctx context.Context, tenantID string, typ domain.CodeType, code string, now time.Time) (row *domain.Code, consumed bool, err error)
}
