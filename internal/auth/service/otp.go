package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tenantauth/internal/autherr"
	"tenantauth/internal/ceremony"
	ccdomain "tenantauth/internal/contactchannel/domain"
	"tenantauth/internal/events"
	"tenantauth/internal/mailer"
	tenantdomain "tenantauth/internal/tenant/domain"
	userdomain "tenantauth/internal/user/domain"
	vcservice "tenantauth/internal/verificationcode/service"
)

// OTPLength is the number of characters from the front of the code that are
// delivered as the typeable one-time password. The rest of the code is the
// nonce returned to the API caller; redemption needs both halves.
const OTPLength = 6

// ComposeSignInCode rebuilds the full code from the user-typed OTP and the
// nonce the send call returned. The OTP is case-insensitive.
func ComposeSignInCode(otp, nonce string) string {
	return strings.ToLower(otp) + nonce
}

// SendSignInCode starts the OTP sign-in ceremony for email: it resolves
// whether the address belongs to an existing user or a sign-up, issues a
// code, and mails the link plus the typeable OTP. The returned nonce is the
// caller's half of the code.
func (s *Service) SendSignInCode(ctx context.Context, t *tenantdomain.Tenant, email, callbackURL string) (*ceremony.SendReceipt, error) {
	if !t.OTPEnabled {
		return nil, autherr.ErrOTPAuthNotEnabled
	}

	data := otpSignInData{IsNewUser: true}
	ch, err := s.channels.GetAuthChannel(ctx, t.ID, ccdomain.ChannelTypeEmail, email)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup contact channel: %w", err)
	}
	if ch != nil {
		// An unverified address cannot be signed into by code: ownership was
		// never proven, and mailing a sign-in link would prove it implicitly.
		if !ch.IsVerified {
			return nil, autherr.ErrUserEmailAlreadyExists
		}
		u, err := s.users.GetByID(ctx, t.ID, ch.UserID)
		if err != nil {
			return nil, fmt.Errorf("auth: load user: %w", err)
		}
		if u == nil {
			return nil, autherr.ErrUserNotFound
		}
		if !u.OTPAuthEnabled {
			// The account exists with another method; merge OTP in.
			if err := s.users.EnableOTPAuth(ctx, t.ID, u.ID); err != nil {
				return nil, fmt.Errorf("auth: enable otp auth: %w", err)
			}
		}
		data = otpSignInData{UserID: u.ID, IsNewUser: false}
	} else if !t.SignUpEnabled {
		return nil, autherr.ErrSignUpNotEnabled
	}

	return s.otpSignIn.SendCode(ctx, ceremony.CreateOptions[otpSignInData, emailMethod]{
		Tenant:      t,
		Data:        data,
		Method:      emailMethod{Email: email},
		CallbackURL: &callbackURL,
	})
}

// SignInWithOTP redeems a full sign-in code (typed OTP + nonce, or the code
// from a delivered link) and returns tokens or an MFA continuation.
func (s *Service) SignInWithOTP(ctx context.Context, t *tenantdomain.Tenant, code string) (*SignInResult, error) {
	return s.otpSignIn.Redeem(ctx, t, code, emptyBody{})
}

// CheckSignInCode reports whether the code would currently redeem, without
// consuming it.
func (s *Service) CheckSignInCode(ctx context.Context, t *tenantdomain.Tenant, code string) error {
	return s.otpSignIn.CheckCode(ctx, t, code)
}

// sendSignInMail delivers the sign-in link and the typeable OTP.
func (s *Service) sendSignInMail(ctx context.Context, issued *vcservice.Issued, opts ceremony.CreateOptions[otpSignInData, emailMethod]) (*ceremony.SendReceipt, error) {
	otp := strings.ToUpper(issued.Code[:OTPLength])
	link := ""
	if issued.Link != nil {
		link = issued.Link.String()
	}
	err := s.mail.Send(ctx, mailer.Message{
		To:      opts.Method.Email,
		Subject: "Sign in to " + opts.Tenant.DisplayName,
		Body: fmt.Sprintf("Your sign-in code is %s.\n\nOr follow this link: %s\n\nThe code expires at %s.",
			otp, link, issued.ExpiresAt.Format(time.RFC3339)),
	})
	if err != nil {
		return nil, fmt.Errorf("auth: send sign-in mail: %w", err)
	}
	s.devCodes.Put(ctx, opts.Tenant.ID, opts.Method.Email, issued.Code, issued.ExpiresAt)
	return &ceremony.SendReceipt{Nonce: issued.Code[OTPLength:]}, nil
}

// handleOTPSignIn runs once the code is consumed: it creates the user for
// sign-ups, then finishes the sign-in through the MFA gate.
func (s *Service) handleOTPSignIn(ctx context.Context, t *tenantdomain.Tenant, m emailMethod, data otpSignInData, _ emptyBody) (*SignInResult, error) {
	var u *userdomain.User
	if data.UserID == "" {
		// Redeeming the code proved ownership of the address, so the new
		// user's email starts out verified.
		var err error
		u, err = s.createUserWithEmail(ctx, t, m.Email, createUserOptions{
			emailVerified:  true,
			otpAuthEnabled: true,
		})
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		u, err = s.users.GetByID(ctx, t.ID, data.UserID)
		if err != nil {
			return nil, fmt.Errorf("auth: load user: %w", err)
		}
		if u == nil {
			// The user was deleted between send and redeem.
			return nil, autherr.ErrUserNotFound
		}
	}
	return s.finishSignIn(ctx, t, u, data.IsNewUser)
}

type createUserOptions struct {
	emailVerified  bool
	otpAuthEnabled bool
	passwordHash   string
}

// createUserWithEmail creates a user and their auth contact channel. The
// unique index on auth channel values rejects duplicates.
func (s *Service) createUserWithEmail(ctx context.Context, t *tenantdomain.Tenant, email string, opts createUserOptions) (*userdomain.User, error) {
	existing, err := s.channels.GetAuthChannel(ctx, t.ID, ccdomain.ChannelTypeEmail, email)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup contact channel: %w", err)
	}
	if existing != nil {
		return nil, autherr.ErrUserEmailAlreadyExists
	}
	now := time.Now().UTC()
	u := &userdomain.User{
		ID:             uuid.New().String(),
		TenantID:       t.ID,
		PrimaryEmail:   email,
		PasswordHash:   opts.passwordHash,
		OTPAuthEnabled: opts.otpAuthEnabled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	if err := s.channels.Create(ctx, &ccdomain.ContactChannel{
		ID:          uuid.New().String(),
		TenantID:    t.ID,
		UserID:      u.ID,
		Type:        ccdomain.ChannelTypeEmail,
		Value:       email,
		IsVerified:  opts.emailVerified,
		UsedForAuth: true,
		CreatedAt:   now,
	}); err != nil {
		return nil, fmt.Errorf("auth: create contact channel: %w", err)
	}
	if err := s.emit.Emit(ctx, events.Event{
		Type:     events.TypeUserCreated,
		TenantID: t.ID,
		UserID:   u.ID,
	}); err != nil {
		s.log.Warn().Err(err).Msg("emit user.created failed")
	}
	return u, nil
}
