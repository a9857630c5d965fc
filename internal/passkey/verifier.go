// Package passkey defines the boundary to the external WebAuthn verifier.
// Cryptographic assertion checking is not done in this service; an injected
// Verifier reports whether the assertion matched and the credential's new
// signature counter.
package passkey

import (
	"context"
	"encoding/json"
)

// Assertion is the verification request passed to the external verifier.
type Assertion struct {
	// Challenge is the value stored in the passkey authentication code's data.
	Challenge string
	// Response is the client's raw WebAuthn authentication response.
	Response json.RawMessage
	// PublicKey and Counter come from the stored credential.
	PublicKey string
	Counter   uint32
	// TrustedOrigins and AllowLocalhost mirror the tenant's callback policy.
	TrustedOrigins []string
	AllowLocalhost bool
}

// Result is the verifier's verdict. Verified false means the assertion did not
// check out; NewCounter is only meaningful when Verified is true.
type Result struct {
	Verified   bool
	NewCounter uint32
}

// Verifier checks a WebAuthn assertion against a stored credential.
type Verifier interface {
	VerifyAssertion(ctx context.Context, a Assertion) (Result, error)
}
