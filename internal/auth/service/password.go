package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tenantauth/internal/autherr"
	"tenantauth/internal/ceremony"
	ccdomain "tenantauth/internal/contactchannel/domain"
	"tenantauth/internal/mailer"
	tenantdomain "tenantauth/internal/tenant/domain"
	userdomain "tenantauth/internal/user/domain"
	vcservice "tenantauth/internal/verificationcode/service"
)

// Password length bounds. The upper bound keeps bcrypt input within its
// effective 72-byte limit.
const (
	minPasswordLength = 8
	maxPasswordLength = 70
)

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", maxPasswordLength)
	}
	return nil
}

// dummyPasswordHash is a valid bcrypt hash compared against when no account
// matches, so a missing user costs the same as a wrong password.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// SignInWithPassword checks the email/password pair and finishes the sign-in
// through the MFA gate. Unknown email and wrong password are indistinguishable
// to the caller.
func (s *Service) SignInWithPassword(ctx context.Context, t *tenantdomain.Tenant, email, password string) (*SignInResult, error) {
	if !t.PasswordEnabled {
		return nil, autherr.ErrPasswordAuthNotEnabled
	}
	ch, err := s.channels.GetAuthChannel(ctx, t.ID, ccdomain.ChannelTypeEmail, email)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup contact channel: %w", err)
	}
	var u *userdomain.User
	hash := dummyPasswordHash
	if ch != nil {
		loaded, err := s.users.GetByID(ctx, t.ID, ch.UserID)
		if err != nil {
			return nil, fmt.Errorf("auth: load user: %w", err)
		}
		if loaded != nil && loaded.PasswordHash != "" {
			u = loaded
			hash = loaded.PasswordHash
		}
	}
	// The compare runs even when no account matched.
	if err := s.hasher.Compare(hash, []byte(password)); err != nil || u == nil {
		return nil, autherr.ErrEmailPasswordMismatch
	}
	return s.finishSignIn(ctx, t, u, false)
}

// SignUpWithPassword creates a password account and signs it in. When
// verificationCallbackURL is set, a contact verification code is mailed;
// delivery failures are logged, not surfaced, except for a rejected callback
// URL which fails the sign-up.
func (s *Service) SignUpWithPassword(ctx context.Context, t *tenantdomain.Tenant, email, password string, verificationCallbackURL *string) (*SignInResult, error) {
	if !t.PasswordEnabled {
		return nil, autherr.ErrPasswordAuthNotEnabled
	}
	if !t.SignUpEnabled {
		return nil, autherr.ErrSignUpNotEnabled
	}
	if err := validatePassword(password); err != nil {
		return nil, autherr.NewSchemaValidation("password", err.Error())
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	u, err := s.createUserWithEmail(ctx, t, email, createUserOptions{passwordHash: hash})
	if err != nil {
		return nil, err
	}
	if verificationCallbackURL != nil {
		if _, err := s.SendContactVerificationCode(ctx, t, u.ID, email, *verificationCallbackURL); err != nil {
			if errors.Is(err, autherr.ErrRedirectURLNotWhitelisted) {
				return nil, err
			}
			s.log.Warn().Err(err).Str("user_id", u.ID).Msg("send sign-up verification code failed")
		}
	}
	return s.finishSignIn(ctx, t, u, true)
}

// UpdatePassword changes the password for the authenticated user and revokes
// every other session; only the acting session's refresh token stays valid.
func (s *Service) UpdatePassword(ctx context.Context, t *tenantdomain.Tenant, userID, sessionID, oldPassword, newPassword string) error {
	if !t.PasswordEnabled {
		return autherr.ErrPasswordAuthNotEnabled
	}
	u, err := s.users.GetByID(ctx, t.ID, userID)
	if err != nil {
		return fmt.Errorf("auth: load user: %w", err)
	}
	if u == nil {
		return autherr.ErrUserNotFound
	}
	if u.PasswordHash == "" {
		return autherr.ErrUserDoesNotHavePassword
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(oldPassword)); err != nil {
		return autherr.ErrPasswordConfirmationMismatch
	}
	if err := validatePassword(newPassword); err != nil {
		return autherr.NewSchemaValidation("new_password", err.Error())
	}
	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, t.ID, userID, hash); err != nil {
		return fmt.Errorf("auth: update password hash: %w", err)
	}
	return s.sessions.RevokeAllExcept(ctx, t.ID, userID, sessionID)
}

// SendPasswordResetCode mails a reset link for the account behind email.
func (s *Service) SendPasswordResetCode(ctx context.Context, t *tenantdomain.Tenant, email, callbackURL string) (*ceremony.SendReceipt, error) {
	if !t.PasswordEnabled {
		return nil, autherr.ErrPasswordAuthNotEnabled
	}
	ch, err := s.channels.GetAuthChannel(ctx, t.ID, ccdomain.ChannelTypeEmail, email)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup contact channel: %w", err)
	}
	if ch == nil {
		return nil, autherr.ErrUserNotFound
	}
	return s.passwordReset.SendCode(ctx, ceremony.CreateOptions[passwordResetData, emailMethod]{
		Tenant:      t,
		Data:        passwordResetData{UserID: ch.UserID},
		Method:      emailMethod{Email: email},
		CallbackURL: &callbackURL,
	})
}

// ResetPassword redeems a reset code and sets the new password. Every session
// of the user is revoked; whoever holds the mailbox starts from scratch.
func (s *Service) ResetPassword(ctx context.Context, t *tenantdomain.Tenant, code, newPassword string) error {
	_, err := s.passwordReset.Redeem(ctx, t, code, passwordResetBody{Password: newPassword})
	return err
}

// CheckPasswordResetCode reports whether the reset code would currently
// redeem, without consuming it.
func (s *Service) CheckPasswordResetCode(ctx context.Context, t *tenantdomain.Tenant, code string) error {
	return s.passwordReset.CheckCode(ctx, t, code)
}

func (s *Service) sendPasswordResetMail(ctx context.Context, issued *vcservice.Issued, opts ceremony.CreateOptions[passwordResetData, emailMethod]) (*ceremony.SendReceipt, error) {
	link := ""
	if issued.Link != nil {
		link = issued.Link.String()
	}
	err := s.mail.Send(ctx, mailer.Message{
		To:      opts.Method.Email,
		Subject: "Reset your " + opts.Tenant.DisplayName + " password",
		Body: fmt.Sprintf("Follow this link to reset your password: %s\n\nThe link expires at %s.",
			link, issued.ExpiresAt.Format(time.RFC3339)),
	})
	if err != nil {
		return nil, fmt.Errorf("auth: send password reset mail: %w", err)
	}
	return &ceremony.SendReceipt{}, nil
}

func (s *Service) handlePasswordReset(ctx context.Context, t *tenantdomain.Tenant, _ emailMethod, data passwordResetData, body passwordResetBody) (emptyResult, error) {
	u, err := s.users.GetByID(ctx, t.ID, data.UserID)
	if err != nil {
		return emptyResult{}, fmt.Errorf("auth: load user: %w", err)
	}
	if u == nil {
		return emptyResult{}, autherr.ErrUserNotFound
	}
	hash, err := s.hasher.Hash([]byte(body.Password))
	if err != nil {
		return emptyResult{}, fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, t.ID, u.ID, hash); err != nil {
		return emptyResult{}, fmt.Errorf("auth: update password hash: %w", err)
	}
	if err := s.sessions.RevokeAllExcept(ctx, t.ID, u.ID, ""); err != nil {
		return emptyResult{}, err
	}
	return emptyResult{}, nil
}
