package domain

import (
	"encoding/json"
	"time"
)

// CodeType discriminates which ceremony a verification code belongs to. The
// codes table holds every ceremony's rows; the type tag decides which payload
// schemas apply.
type CodeType string

const (
	TypeOneTimePassword           CodeType = "one_time_password"
	TypePasswordReset             CodeType = "password_reset"
	TypeContactChannelVerification CodeType = "contact_channel_verification"
	TypePasskeyAuthChallenge      CodeType = "passkey_authentication_challenge"
)

// Code is one single-use verification code row. The random Code string is the
// redemption key; the row ID never leaves the store. Data is the payload
// carried through to the ceremony's business logic; Method records how the
// code was requested.
type Code struct {
	ID          string
	TenantID    string
	Type        CodeType
	Code        string
	Data        json.RawMessage
	Method      json.RawMessage
	CallbackURL *string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// Expired reports whether the code's expiry is at or before now. A consumed
// code stays consumed regardless of expiry; expiry only matters while unused.
func (c *Code) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
