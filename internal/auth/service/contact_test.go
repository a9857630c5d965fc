package service

import (
	"context"
	"errors"
	"testing"

	"tenantauth/internal/autherr"
	ccdomain "tenantauth/internal/contactchannel/domain"
)

func TestContactVerificationRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	tn := allEnabledTenant()

	// A password sign-up leaves the email unverified.
	res, err := h.svc.SignUpWithPassword(ctx, tn, "a@example.com", "long enough", nil)
	if err != nil {
		t.Fatalf("SignUpWithPassword: %v", err)
	}
	ch, _ := h.channels.GetAuthChannel(ctx, tn.ID, ccdomain.ChannelTypeEmail, "a@example.com")
	if ch.IsVerified {
		t.Fatal("sign-up email must start unverified")
	}

	if _, err := h.svc.SendContactVerificationCode(ctx, tn, res.UserID, "a@example.com", "https://app.example.com/verify"); err != nil {
		t.Fatalf("SendContactVerificationCode: %v", err)
	}
	code := codeFromMail(t, h.mail.last(t))

	if err := h.svc.VerifyContactChannel(ctx, tn, code); err != nil {
		t.Fatalf("VerifyContactChannel: %v", err)
	}
	ch, _ = h.channels.GetAuthChannel(ctx, tn.ID, ccdomain.ChannelTypeEmail, "a@example.com")
	if !ch.IsVerified {
		t.Fatal("channel not marked verified")
	}

	if err := h.svc.VerifyContactChannel(ctx, tn, code); !errors.Is(err, autherr.ErrVerificationCodeAlreadyUsed) {
		t.Fatalf("reused code: want already-used, got %v", err)
	}
	if _, err := h.svc.SendContactVerificationCode(ctx, tn, res.UserID, "a@example.com", "https://app.example.com/verify"); !errors.Is(err, autherr.ErrEmailAlreadyVerified) {
		t.Fatalf("verified channel: want already-verified, got %v", err)
	}
}

func TestSendContactVerificationCodeGuards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	tn := allEnabledTenant()
	res, err := h.svc.SignUpWithPassword(ctx, tn, "a@example.com", "long enough", nil)
	if err != nil {
		t.Fatalf("SignUpWithPassword: %v", err)
	}

	// The channel must belong to the requesting user.
	if _, err := h.svc.SendContactVerificationCode(ctx, tn, "someone-else", "a@example.com", "https://app.example.com/verify"); !errors.Is(err, autherr.ErrUserNotFound) {
		t.Fatalf("foreign channel: want user-not-found, got %v", err)
	}
	if _, err := h.svc.SendContactVerificationCode(ctx, tn, res.UserID, "nobody@example.com", "https://app.example.com/verify"); !errors.Is(err, autherr.ErrUserNotFound) {
		t.Fatalf("unknown email: want user-not-found, got %v", err)
	}
}
