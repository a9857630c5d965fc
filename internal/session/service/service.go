// Package service implements session issuance: the access/refresh token pair,
// refresh-token redemption, and revocation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tenantauth/internal/autherr"
	"tenantauth/internal/events"
	"tenantauth/internal/security"
	"tenantauth/internal/session/domain"
	"tenantauth/internal/session/repository"
)

// DefaultSessionTTL applies when the issuer is constructed with a zero TTL.
const DefaultSessionTTL = 365 * 24 * time.Hour

// TokenPair is what sign-in hands to the client: a short-lived access JWT and
// the opaque refresh token that outlives it.
type TokenPair struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
	SessionID            string
}

// Issuer creates sessions and mints tokens for them. Safe for concurrent use.
type Issuer struct {
	repo       repository.Repository
	tokens     *security.TokenProvider
	sessionTTL time.Duration
	emit       events.Emitter
	log        zerolog.Logger
	now        func() time.Time
}

// NewIssuer returns an Issuer storing sessions in repo and signing access
// tokens with tokens.
func NewIssuer(repo repository.Repository, tokens *security.TokenProvider, sessionTTL time.Duration, emit events.Emitter, log zerolog.Logger) *Issuer {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if emit == nil {
		emit = events.Noop{}
	}
	return &Issuer{repo: repo, tokens: tokens, sessionTTL: sessionTTL, emit: emit, log: log, now: time.Now}
}

// WithNow overrides the clock; for tests.
func (i *Issuer) WithNow(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Create opens a new session for the user and returns its token pair. The
// refresh token is generated here and only its hash is persisted.
func (i *Issuer) Create(ctx context.Context, tenantID, userID string) (*TokenPair, error) {
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("session: tenant id and user id are required")
	}
	refresh, err := security.GenerateCode(security.DefaultCodeLength)
	if err != nil {
		return nil, fmt.Errorf("session: generate refresh token: %w", err)
	}
	now := i.now().UTC()
	s := &domain.Session{
		ID:               uuid.New().String(),
		TenantID:         tenantID,
		UserID:           userID,
		RefreshTokenHash: security.HashRefreshToken(refresh),
		ExpiresAt:        now.Add(i.sessionTTL),
		CreatedAt:        now,
	}
	if err := i.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	access, accessExp, err := i.tokens.IssueAccess(s.ID, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("session: issue access token: %w", err)
	}
	if err := i.emit.Emit(ctx, events.Event{
		Type:     events.TypeSessionCreated,
		TenantID: tenantID,
		UserID:   userID,
		Meta:     map[string]string{"session_id": s.ID},
	}); err != nil {
		i.log.Warn().Err(err).Msg("emit session.created failed")
	}
	return &TokenPair{
		AccessToken:          access,
		AccessTokenExpiresAt: accessExp,
		RefreshToken:         refresh,
		SessionID:            s.ID,
	}, nil
}

// Refresh mints a fresh access token for the presented refresh token. The
// refresh token itself is not rotated; it stays valid until the session
// expires or is revoked.
func (i *Issuer) Refresh(ctx context.Context, tenantID, refreshToken string) (accessToken string, expiresAt time.Time, err error) {
	s, err := i.lookup(ctx, tenantID, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	access, accessExp, err := i.tokens.IssueAccess(s.ID, s.UserID, s.TenantID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: issue access token: %w", err)
	}
	if err := i.repo.UpdateLastUsed(ctx, s.TenantID, s.ID, i.now().UTC()); err != nil {
		i.log.Warn().Err(err).Str("session_id", s.ID).Msg("update session last-used failed")
	}
	return access, accessExp, nil
}

// Revoke ends the session the refresh token belongs to. Further Refresh calls
// with the token fail; outstanding access tokens run out on their own.
func (i *Issuer) Revoke(ctx context.Context, tenantID, refreshToken string) error {
	s, err := i.lookup(ctx, tenantID, refreshToken)
	if err != nil {
		return err
	}
	if err := i.repo.Revoke(ctx, s.TenantID, s.ID, i.now().UTC()); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	if err := i.emit.Emit(ctx, events.Event{
		Type:     events.TypeSessionRevoked,
		TenantID: s.TenantID,
		UserID:   s.UserID,
		Meta:     map[string]string{"session_id": s.ID},
	}); err != nil {
		i.log.Warn().Err(err).Msg("emit session.revoked failed")
	}
	return nil
}

// RevokeAllExcept revokes every session of the user except exceptSessionID.
// Pass an empty exceptSessionID to revoke all of them. Used after password
// changes so only the acting client stays signed in.
func (i *Issuer) RevokeAllExcept(ctx context.Context, tenantID, userID, exceptSessionID string) error {
	if err := i.repo.RevokeAllByUser(ctx, tenantID, userID, exceptSessionID, i.now().UTC()); err != nil {
		return fmt.Errorf("session: revoke all: %w", err)
	}
	if err := i.emit.Emit(ctx, events.Event{
		Type:     events.TypeSessionsRevoked,
		TenantID: tenantID,
		UserID:   userID,
	}); err != nil {
		i.log.Warn().Err(err).Msg("emit sessions.revoked failed")
	}
	return nil
}

// DecodeAccess validates an access token and checks that its tenant matches.
// It does not hit the database: access tokens are trusted until expiry even
// if the backing session was revoked in the meantime.
func (i *Issuer) DecodeAccess(tenantID, accessToken string) (*security.AccessClaims, error) {
	claims, err := i.tokens.ValidateAccess(accessToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, autherr.ErrAccessTokenExpired
		}
		return nil, autherr.ErrUnparsableAccessToken
	}
	if claims.TenantID != tenantID {
		return nil, autherr.ErrUnparsableAccessToken
	}
	return claims, nil
}

// lookup resolves a refresh token to its active session, enforcing tenant
// scope, expiry, and revocation with typed errors.
func (i *Issuer) lookup(ctx context.Context, tenantID, refreshToken string) (*domain.Session, error) {
	s, err := i.repo.GetByRefreshTokenHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("session: lookup: %w", err)
	}
	// The returned row's hash is re-checked in constant time.
	if s == nil || s.TenantID != tenantID || !security.RefreshTokenHashEqual(refreshToken, s.RefreshTokenHash) {
		return nil, autherr.ErrRefreshTokenNotFound
	}
	if !s.Active(i.now().UTC()) {
		return nil, autherr.ErrRefreshTokenExpiredOrRevoked
	}
	return s, nil
}
