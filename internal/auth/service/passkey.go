package service

import (
	"context"
	"encoding/json"
	"fmt"

	"tenantauth/internal/autherr"
	"tenantauth/internal/ceremony"
	"tenantauth/internal/passkey"
	"tenantauth/internal/security"
	tenantdomain "tenantauth/internal/tenant/domain"
)

// PasskeyChallenge is what InitiatePasskeyAuthentication returns: the
// challenge the authenticator must sign and the code that ties the later
// sign-in call back to it.
type PasskeyChallenge struct {
	Challenge string
	Code      string
}

// authenticationResponse carries the client's raw WebAuthn response while
// exposing the credential id needed for the lookup. The raw bytes go to the
// verifier untouched.
type authenticationResponse struct {
	ID  string
	Raw json.RawMessage
}

func (a *authenticationResponse) UnmarshalJSON(b []byte) error {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	a.ID = head.ID
	a.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (a authenticationResponse) MarshalJSON() ([]byte, error) {
	if len(a.Raw) == 0 {
		return []byte("null"), nil
	}
	return a.Raw, nil
}

// InitiatePasskeyAuthentication creates a short-lived challenge code for a
// WebAuthn assertion. The full code goes back to the caller; there is no
// out-of-band delivery in this ceremony.
func (s *Service) InitiatePasskeyAuthentication(ctx context.Context, t *tenantdomain.Tenant) (*PasskeyChallenge, error) {
	if !t.PasskeyEnabled {
		return nil, autherr.ErrPasskeyAuthNotEnabled
	}
	challenge, err := security.GenerateCode(32)
	if err != nil {
		return nil, fmt.Errorf("auth: generate passkey challenge: %w", err)
	}
	issued, err := s.passkeySignIn.CreateCode(ctx, ceremony.CreateOptions[passkeyChallengeData, emptyMethod]{
		Tenant:    t,
		Data:      passkeyChallengeData{Challenge: challenge},
		ExpiresIn: s.attemptTTL,
	})
	if err != nil {
		return nil, err
	}
	return &PasskeyChallenge{Challenge: challenge, Code: issued.Code}, nil
}

// SignInWithPasskey redeems a challenge code together with the client's
// assertion. Verification is delegated to the injected verifier; any failed
// check comes back as ErrPasskeyAuthenticationFailed.
func (s *Service) SignInWithPasskey(ctx context.Context, t *tenantdomain.Tenant, code string, response json.RawMessage) (*SignInResult, error) {
	var body passkeySignInBody
	if err := json.Unmarshal(response, &body.AuthenticationResponse); err != nil {
		return nil, autherr.NewSchemaValidation("authentication_response", err.Error())
	}
	return s.passkeySignIn.Redeem(ctx, t, code, body)
}

func (s *Service) handlePasskeySignIn(ctx context.Context, t *tenantdomain.Tenant, _ emptyMethod, data passkeyChallengeData, body passkeySignInBody) (*SignInResult, error) {
	if !t.PasskeyEnabled {
		return nil, autherr.ErrPasskeyAuthNotEnabled
	}
	if s.verifier == nil {
		return nil, fmt.Errorf("auth: no passkey verifier configured")
	}
	cred, err := s.passkeys.GetByCredentialID(ctx, t.ID, body.AuthenticationResponse.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: load passkey credential: %w", err)
	}
	if cred == nil {
		return nil, autherr.ErrPasskeyAuthenticationFailed
	}
	result, err := s.verifier.VerifyAssertion(ctx, passkey.Assertion{
		Challenge:      data.Challenge,
		Response:       body.AuthenticationResponse.Raw,
		PublicKey:      cred.PublicKey,
		Counter:        cred.Counter,
		TrustedOrigins: t.TrustedDomains,
		AllowLocalhost: t.AllowLocalhost,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: verify passkey assertion: %w", err)
	}
	if !result.Verified {
		return nil, autherr.ErrPasskeyAuthenticationFailed
	}
	if err := s.passkeys.UpdateCounter(ctx, t.ID, cred.ID, result.NewCounter); err != nil {
		return nil, fmt.Errorf("auth: update passkey counter: %w", err)
	}
	u, err := s.users.GetByID(ctx, t.ID, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	if u == nil {
		return nil, autherr.ErrUserNotFound
	}
	return s.finishSignIn(ctx, t, u, false)
}
