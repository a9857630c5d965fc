package service

import (
	"context"
	"fmt"
	"time"

	"tenantauth/internal/autherr"
	"tenantauth/internal/ceremony"
	ccdomain "tenantauth/internal/contactchannel/domain"
	"tenantauth/internal/mailer"
	tenantdomain "tenantauth/internal/tenant/domain"
	vcservice "tenantauth/internal/verificationcode/service"
)

// SendContactVerificationCode mails a verification link for one of the
// user's unverified email addresses.
func (s *Service) SendContactVerificationCode(ctx context.Context, t *tenantdomain.Tenant, userID, email, callbackURL string) (*ceremony.SendReceipt, error) {
	ch, err := s.channels.GetAuthChannel(ctx, t.ID, ccdomain.ChannelTypeEmail, email)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup contact channel: %w", err)
	}
	if ch == nil || ch.UserID != userID {
		return nil, autherr.ErrUserNotFound
	}
	if ch.IsVerified {
		return nil, autherr.ErrEmailAlreadyVerified
	}
	return s.contactVerify.SendCode(ctx, ceremony.CreateOptions[contactVerifyData, emailMethod]{
		Tenant:      t,
		Data:        contactVerifyData{UserID: userID},
		Method:      emailMethod{Email: email},
		CallbackURL: &callbackURL,
	})
}

// VerifyContactChannel redeems a verification code and marks the channel
// verified. Re-verifying an already verified channel is a no-op success;
// the single-use code is spent either way.
func (s *Service) VerifyContactChannel(ctx context.Context, t *tenantdomain.Tenant, code string) error {
	_, err := s.contactVerify.Redeem(ctx, t, code, emptyBody{})
	return err
}

func (s *Service) sendVerificationMail(ctx context.Context, issued *vcservice.Issued, opts ceremony.CreateOptions[contactVerifyData, emailMethod]) (*ceremony.SendReceipt, error) {
	link := ""
	if issued.Link != nil {
		link = issued.Link.String()
	}
	err := s.mail.Send(ctx, mailer.Message{
		To:      opts.Method.Email,
		Subject: "Verify your email for " + opts.Tenant.DisplayName,
		Body: fmt.Sprintf("Follow this link to verify your email address: %s\n\nThe link expires at %s.",
			link, issued.ExpiresAt.Format(time.RFC3339)),
	})
	if err != nil {
		return nil, fmt.Errorf("auth: send verification mail: %w", err)
	}
	return &ceremony.SendReceipt{}, nil
}

func (s *Service) handleContactVerification(ctx context.Context, t *tenantdomain.Tenant, m emailMethod, data contactVerifyData, _ emptyBody) (emptyResult, error) {
	ch, err := s.channels.GetAuthChannel(ctx, t.ID, ccdomain.ChannelTypeEmail, m.Email)
	if err != nil {
		return emptyResult{}, fmt.Errorf("auth: lookup contact channel: %w", err)
	}
	if ch == nil || ch.UserID != data.UserID {
		// The channel was removed or re-bound between send and redeem.
		return emptyResult{}, fmt.Errorf("auth: contact channel for %s no longer belongs to user %s", m.Email, data.UserID)
	}
	if ch.IsVerified {
		return emptyResult{}, nil
	}
	if err := s.channels.MarkVerified(ctx, t.ID, ch.ID); err != nil {
		return emptyResult{}, fmt.Errorf("auth: mark channel verified: %w", err)
	}
	return emptyResult{}, nil
}
