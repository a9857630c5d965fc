package domain

import (
	"errors"
	"time"
)

// Tenant is an isolated project. Every code, session, and user row is scoped
// to exactly one tenant; nothing here is ever shared across tenants.
type Tenant struct {
	ID          string
	DisplayName string
	// TrustedDomains are the origins callback URLs may point at, e.g.
	// "https://app.example.com". Compared by scheme + host.
	TrustedDomains []string
	AllowLocalhost bool

	// Flow toggles.
	OTPEnabled      bool
	PasswordEnabled bool
	PasskeyEnabled  bool
	SignUpEnabled   bool

	CreatedAt time.Time
}

// Validate validates the tenant for persistence. Returns an error describing
// the first validation failure.
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.DisplayName == "" {
		return errors.New("display name is required")
	}
	return nil
}
