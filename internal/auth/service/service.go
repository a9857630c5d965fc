// Package service implements the concrete authentication ceremonies: OTP
// sign-in, MFA completion, password flows, contact channel verification, and
// passkey sign-in. Each ceremony is one configuration of the generic
// ceremony.Handler plus its business effect.
package service

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tenantauth/internal/ceremony"
	ccrepo "tenantauth/internal/contactchannel/repository"
	"tenantauth/internal/devcode"
	"tenantauth/internal/events"
	"tenantauth/internal/mailer"
	"tenantauth/internal/passkey"
	pkrepo "tenantauth/internal/passkey/repository"
	"tenantauth/internal/security"
	sessionservice "tenantauth/internal/session/service"
	userrepo "tenantauth/internal/user/repository"
	vcdomain "tenantauth/internal/verificationcode/domain"
	vcservice "tenantauth/internal/verificationcode/service"
)

// Default code lifetimes. The sign-in code mirrors a magic link (long), the
// MFA attempt window is deliberately short.
const (
	DefaultSignInCodeTTL = 7 * 24 * time.Hour
	DefaultAttemptTTL    = 5 * time.Minute
)

// SignInResult is the outcome of a successful primary factor. Exactly one of
// Tokens or AttemptCode is set: Tokens when the user is fully signed in,
// AttemptCode when a second factor must be completed first.
type SignInResult struct {
	UserID    string
	IsNewUser bool
	Tokens    *sessionservice.TokenPair
	// AttemptCode is the single-use code that resumes the sign-in at the MFA
	// ceremony. Set only when the user requires TOTP.
	AttemptCode          string
	AttemptCodeExpiresAt time.Time
}

// MFARequired reports whether the sign-in was interrupted for a second factor.
func (r *SignInResult) MFARequired() bool { return r.AttemptCode != "" }

// Deps collects everything the auth service needs. Verifier may be nil when
// passkeys are not deployed; passkey sign-in then fails closed.
type Deps struct {
	Users    userrepo.Repository
	Channels ccrepo.Repository
	Passkeys pkrepo.Repository
	Verifier passkey.Verifier
	Sessions *sessionservice.Issuer
	Codes    *vcservice.Store
	Hasher   *security.Hasher
	Mailer   mailer.Mailer
	DevCodes devcode.Store
	Events   events.Emitter
	Log      zerolog.Logger

	SignInCodeTTL time.Duration
	AttemptTTL    time.Duration
}

// Service runs the authentication ceremonies. Safe for concurrent use.
type Service struct {
	users    userrepo.Repository
	channels ccrepo.Repository
	passkeys pkrepo.Repository
	verifier passkey.Verifier
	sessions *sessionservice.Issuer
	hasher   *security.Hasher
	mail     mailer.Mailer
	devCodes devcode.Store
	emit     events.Emitter
	log      zerolog.Logger

	attemptTTL time.Duration

	otpSignIn     *ceremony.Handler[otpSignInData, emailMethod, emptyBody, *SignInResult]
	mfaSignIn     *ceremony.Handler[mfaAttemptData, emptyMethod, mfaSignInBody, *SignInResult]
	passwordReset *ceremony.Handler[passwordResetData, emailMethod, passwordResetBody, emptyResult]
	contactVerify *ceremony.Handler[contactVerifyData, emailMethod, emptyBody, emptyResult]
	passkeySignIn *ceremony.Handler[passkeyChallengeData, emptyMethod, passkeySignInBody, *SignInResult]
}

// NewService wires the ceremonies. All repositories and the session issuer
// are required.
func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.DevCodes == nil {
		d.DevCodes = devcode.Noop{}
	}
	if d.SignInCodeTTL <= 0 {
		d.SignInCodeTTL = DefaultSignInCodeTTL
	}
	if d.AttemptTTL <= 0 {
		d.AttemptTTL = DefaultAttemptTTL
	}
	s := &Service{
		users:      d.Users,
		channels:   d.Channels,
		passkeys:   d.Passkeys,
		verifier:   d.Verifier,
		sessions:   d.Sessions,
		hasher:     d.Hasher,
		mail:       d.Mailer,
		devCodes:   d.DevCodes,
		emit:       d.Events,
		log:        d.Log,
		attemptTTL: d.AttemptTTL,
	}

	s.otpSignIn = ceremony.New(ceremony.Config[otpSignInData, emailMethod, emptyBody, *SignInResult]{
		Type:   vcdomain.TypeOneTimePassword,
		Expiry: d.SignInCodeTTL,
		Send:   s.sendSignInMail,
		Handle: s.handleOTPSignIn,
	}, d.Codes, d.Events, d.Log)

	s.mfaSignIn = ceremony.New(ceremony.Config[mfaAttemptData, emptyMethod, mfaSignInBody, *SignInResult]{
		Type:     vcdomain.TypeOneTimePassword,
		Expiry:   d.AttemptTTL,
		Validate: s.validateTOTP,
		Handle:   s.handleMFASignIn,
	}, d.Codes, d.Events, d.Log)

	s.passwordReset = ceremony.New(ceremony.Config[passwordResetData, emailMethod, passwordResetBody, emptyResult]{
		Type:   vcdomain.TypePasswordReset,
		Expiry: d.SignInCodeTTL,
		Send:   s.sendPasswordResetMail,
		Handle: s.handlePasswordReset,
	}, d.Codes, d.Events, d.Log)

	s.contactVerify = ceremony.New(ceremony.Config[contactVerifyData, emailMethod, emptyBody, emptyResult]{
		Type:   vcdomain.TypeContactChannelVerification,
		Expiry: d.SignInCodeTTL,
		Send:   s.sendVerificationMail,
		Handle: s.handleContactVerification,
	}, d.Codes, d.Events, d.Log)

	s.passkeySignIn = ceremony.New(ceremony.Config[passkeyChallengeData, emptyMethod, passkeySignInBody, *SignInResult]{
		Type:   vcdomain.TypePasskeyAuthChallenge,
		Expiry: d.AttemptTTL,
		Handle: s.handlePasskeySignIn,
	}, d.Codes, d.Events, d.Log)

	return s
}

// Ceremony payload schemas. Validate runs after every JSON decode, on the
// stored payloads as well as request bodies.

type emptyBody struct{}

type emptyMethod struct{}

type emptyResult struct{}

type emailMethod struct {
	Email string `json:"email"`
}

func (m emailMethod) Validate() error {
	if m.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

type otpSignInData struct {
	// UserID is empty for sign-ups; the user is created at redeem time.
	UserID    string `json:"user_id,omitempty"`
	IsNewUser bool   `json:"is_new_user"`
}

func (d otpSignInData) Validate() error {
	if !d.IsNewUser && d.UserID == "" {
		return errors.New("user_id is required for existing users")
	}
	return nil
}

type mfaAttemptData struct {
	UserID    string `json:"user_id"`
	IsNewUser bool   `json:"is_new_user"`
}

func (d mfaAttemptData) Validate() error {
	if d.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

type mfaSignInBody struct {
	Type string `json:"type"`
	TOTP string `json:"totp"`
}

func (b mfaSignInBody) Validate() error {
	if b.Type != "totp" {
		return errors.New("type must be \"totp\"")
	}
	if b.TOTP == "" {
		return errors.New("totp is required")
	}
	return nil
}

type passwordResetData struct {
	UserID string `json:"user_id"`
}

func (d passwordResetData) Validate() error {
	if d.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

type passwordResetBody struct {
	Password string `json:"password"`
}

func (b passwordResetBody) Validate() error {
	return validatePassword(b.Password)
}

type contactVerifyData struct {
	UserID string `json:"user_id"`
}

func (d contactVerifyData) Validate() error {
	if d.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

type passkeyChallengeData struct {
	Challenge string `json:"challenge"`
}

func (d passkeyChallengeData) Validate() error {
	if d.Challenge == "" {
		return errors.New("challenge is required")
	}
	return nil
}

type passkeySignInBody struct {
	AuthenticationResponse authenticationResponse `json:"authentication_response"`
}

func (b passkeySignInBody) Validate() error {
	if b.AuthenticationResponse.ID == "" {
		return errors.New("authentication_response.id is required")
	}
	if len(b.AuthenticationResponse.Raw) == 0 {
		return errors.New("authentication_response is required")
	}
	return nil
}
