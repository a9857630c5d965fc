package domain

import "time"

// Credential is a registered passkey (WebAuthn credential), scoped to one
// tenant and user. The public key and counter are opaque to this service;
// assertion verification happens in an external verifier.
type Credential struct {
	ID           string
	TenantID     string
	UserID       string
	CredentialID string
	PublicKey    string
	Counter      uint32
	CreatedAt    time.Time
}
