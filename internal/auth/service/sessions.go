package service

import (
	"context"
	"fmt"
	"time"

	"tenantauth/internal/autherr"
	sessionservice "tenantauth/internal/session/service"
	tenantdomain "tenantauth/internal/tenant/domain"
)

// IssueSessionForUser opens a session directly for userID. This is the
// server-credential path; it bypasses the MFA gate because the caller already
// holds elevated credentials for the tenant.
func (s *Service) IssueSessionForUser(ctx context.Context, t *tenantdomain.Tenant, userID string) (*sessionservice.TokenPair, error) {
	u, err := s.users.GetByID(ctx, t.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	if u == nil {
		return nil, autherr.ErrUserNotFound
	}
	return s.sessions.Create(ctx, t.ID, u.ID)
}

// RefreshSession mints a fresh access token for the refresh token.
func (s *Service) RefreshSession(ctx context.Context, t *tenantdomain.Tenant, refreshToken string) (accessToken string, expiresAt time.Time, err error) {
	return s.sessions.Refresh(ctx, t.ID, refreshToken)
}

// SignOut revokes the session behind the presented refresh token.
func (s *Service) SignOut(ctx context.Context, t *tenantdomain.Tenant, refreshToken string) error {
	return s.sessions.Revoke(ctx, t.ID, refreshToken)
}
