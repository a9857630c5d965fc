package service

import (
	"context"
	"fmt"

	"github.com/pquerna/otp/totp"

	"tenantauth/internal/autherr"
	"tenantauth/internal/ceremony"
	tenantdomain "tenantauth/internal/tenant/domain"
	userdomain "tenantauth/internal/user/domain"
)

// finishSignIn completes a successful primary factor. Users who require TOTP
// get an attempt code instead of tokens; the sign-in resumes at the MFA
// ceremony. Every primary-factor path ends here.
func (s *Service) finishSignIn(ctx context.Context, t *tenantdomain.Tenant, u *userdomain.User, isNewUser bool) (*SignInResult, error) {
	if u.RequiresTOTPMFA {
		issued, err := s.mfaSignIn.CreateCode(ctx, ceremony.CreateOptions[mfaAttemptData, emptyMethod]{
			Tenant:    t,
			Data:      mfaAttemptData{UserID: u.ID, IsNewUser: isNewUser},
			ExpiresIn: s.attemptTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("auth: create mfa attempt code: %w", err)
		}
		return &SignInResult{
			UserID:               u.ID,
			IsNewUser:            isNewUser,
			AttemptCode:          issued.Code,
			AttemptCodeExpiresAt: issued.ExpiresAt,
		}, nil
	}
	pair, err := s.sessions.Create(ctx, t.ID, u.ID)
	if err != nil {
		return nil, err
	}
	return &SignInResult{UserID: u.ID, IsNewUser: isNewUser, Tokens: pair}, nil
}

// SignInWithMFA redeems an attempt code together with a TOTP value. A wrong
// TOTP fails before the code is consumed, so the same attempt code can be
// retried until it expires.
func (s *Service) SignInWithMFA(ctx context.Context, t *tenantdomain.Tenant, attemptCode, totpCode string) (*SignInResult, error) {
	return s.mfaSignIn.Redeem(ctx, t, attemptCode, mfaSignInBody{Type: "totp", TOTP: totpCode})
}

// validateTOTP is the MFA ceremony's pre-consume hook.
func (s *Service) validateTOTP(ctx context.Context, t *tenantdomain.Tenant, _ emptyMethod, data mfaAttemptData, body mfaSignInBody) error {
	u, err := s.users.GetByID(ctx, t.ID, data.UserID)
	if err != nil {
		return fmt.Errorf("auth: load mfa user: %w", err)
	}
	if u == nil {
		return fmt.Errorf("auth: user %s referenced by mfa attempt code no longer exists", data.UserID)
	}
	if u.TOTPSecret == "" {
		return fmt.Errorf("auth: user %s requires mfa but has no totp secret", u.ID)
	}
	if !totp.Validate(body.TOTP, u.TOTPSecret) {
		return autherr.ErrInvalidTotpCode
	}
	return nil
}

// handleMFASignIn runs after the attempt code is consumed; the TOTP has
// already been checked, so all that is left is issuing the session.
func (s *Service) handleMFASignIn(ctx context.Context, t *tenantdomain.Tenant, _ emptyMethod, data mfaAttemptData, _ mfaSignInBody) (*SignInResult, error) {
	pair, err := s.sessions.Create(ctx, t.ID, data.UserID)
	if err != nil {
		return nil, err
	}
	return &SignInResult{UserID: data.UserID, IsNewUser: data.IsNewUser, Tokens: pair}, nil
}
