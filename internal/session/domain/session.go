package domain

import "time"

// Session represents one signed-in client. The access token is a short-lived
// JWT derived from the session; the refresh token is an opaque secret whose
// hash this row stores. The raw refresh token exists only in the client's
// hands.
type Session struct {
	ID               string
	TenantID         string
	UserID           string
	RefreshTokenHash string // SHA-256 hex of the refresh token
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	LastUsedAt       *time.Time
	CreatedAt        time.Time
}

// Active reports whether the session can still mint access tokens at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
