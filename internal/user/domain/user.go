package domain

import (
	"errors"
	"time"
)

// User is the core user entity, scoped to one tenant.
type User struct {
	ID           string
	TenantID     string
	PrimaryEmail string
	// PasswordHash is empty until a password auth method is set.
	PasswordHash string
	// TOTPSecret is the shared secret for the second factor; empty when the
	// user has not enrolled in MFA.
	TOTPSecret string
	// RequiresTOTPMFA gates session issuance: while true, every primary-factor
	// success must be answered with an MFA attempt code instead of tokens.
	RequiresTOTPMFA bool
	// OTPAuthEnabled is true when the user may sign in by email code.
	OTPAuthEnabled bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate validates the user for persistence. Returns an error describing the
// first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if u.RequiresTOTPMFA && u.TOTPSecret == "" {
		return errors.New("totp secret is required when MFA is enforced")
	}
	return nil
}
