package service

import (
	"context"
	"errors"
	"testing"

	"tenantauth/internal/autherr"
	userdomain "tenantauth/internal/user/domain"
)

func TestPasswordSignIn(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	tn := allEnabledTenant()
	seeded := h.seedUser(t, tn.ID, "a@example.com", func(u *userdomain.User) {
		u.PasswordHash = h.hashPassword(t, "correct horse")
	})

	res, err := h.svc.SignInWithPassword(ctx, tn, "a@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if res.UserID != seeded.ID || res.Tokens == nil {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Wrong password and unknown email fail identically.
	if _, err := h.svc.SignInWithPassword(ctx, tn, "a@example.com", "battery staple"); !errors.Is(err, autherr.ErrEmailPasswordMismatch) {
		t.Fatalf("wrong password: want mismatch, got %v", err)
	}
	if _, err := h.svc.SignInWithPassword(ctx, tn, "nobody@example.com", "whatever42"); !errors.Is(err, autherr.ErrEmailPasswordMismatch) {
		t.Fatalf("unknown email: want mismatch, got %v", err)
	}

	disabled := allEnabledTenant()
	disabled.PasswordEnabled = false
	if _, err := h.svc.SignInWithPassword(ctx, disabled, "a@example.com", "correct horse"); !errors.Is(err, autherr.ErrPasswordAuthNotEnabled) {
		t.Fatalf("want password-not-enabled, got %v", err)
	}
}

func TestPasswordSignUp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	tn := allEnabledTenant()

	cb := "https://app.example.com/verify"
	res, err := h.svc.SignUpWithPassword(ctx, tn, "new@example.com", "long enough", &cb)
	if err != nil {
		t.Fatalf("SignUpWithPassword: %v", err)
	}
	if !res.IsNewUser || res.Tokens == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	// A verification mail went out for the still-unverified address.
	if got := h.mail.last(t).To; got != "new@example.com" {
		t.Fatalf("verification mail went to %q", got)
	}

	// The new account signs in with its password.
	if _, err := h.svc.SignInWithPassword(ctx, tn, "new@example.com", "long enough"); err != nil {
		t.Fatalf("sign in after sign up: %v", err)
	}

	if _, err := h.svc.SignUpWithPassword(ctx, tn, "new@example.com", "long enough", nil); !errors.Is(err, autherr.ErrUserEmailAlreadyExists) {
		t.Fatalf("duplicate email: want already-exists, got %v", err)
	}

	var known *autherr.KnownError
	_, err = h.svc.SignUpWithPassword(ctx, tn, "short@example.com", "short", nil)
	if !errors.As(err, &known) || known.Code != autherr.SchemaValidationCode {
		t.Fatalf("short password: want schema error, got %v", err)
	}

	badCB := "https://evil.example.net/verify"
	if _, err := h.svc.SignUpWithPassword(ctx, tn, "other@example.com", "long enough", &badCB); !errors.Is(err, autherr.ErrRedirectURLNotWhitelisted) {
		t.Fatalf("bad callback: want redirect rejection, got %v", err)
	}
}

func TestUpdatePasswordRevokesOtherSessions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	tn := allEnabledTenant()
	u := h.seedUser(t, tn.ID, "a@example.com", func(u *userdomain.User) {
		u.PasswordHash = h.hashPassword(t, "old password")
	})

	first, err := h.svc.SignInWithPassword(ctx, tn, "a@example.com", "old password")
	if err != nil {
		t.Fatalf("first sign-in: %v", err)
	}
	second, err := h.svc.SignInWithPassword(ctx, tn, "a@example.com", "old password")
	if err != nil {
		t.Fatalf("second sign-in: %v", err)
	}

	// The change is performed from the second session.
	if err := h.svc.UpdatePassword(ctx, tn, u.ID, second.Tokens.SessionID, "old password", "new password"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	if _, _, err := h.sessions.Refresh(ctx, tn.ID, first.Tokens.RefreshToken); !errors.Is(err, autherr.ErrRefreshTokenExpiredOrRevoked) {
		t.Fatalf("other session should be revoked, got %v", err)
	}
	if _, _, err := h.sessions.Refresh(ctx, tn.ID, second.Tokens.RefreshToken); err != nil {
		t.Fatalf("acting session should survive: %v", err)
	}
	// The acting session's access token stays valid until natural expiry.
	if _, err := h.sessions.DecodeAccess(tn.ID, second.Tokens.AccessToken); err != nil {
		t.Fatalf("acting access token should still decode: %v", err)
	}

	if _, err := h.svc.SignInWithPassword(ctx, tn, "a@example.com", "old password"); !errors.Is(err, autherr.ErrEmailPasswordMismatch) {
		t.Fatal("old password must stop working")
	}
	if _, err := h.svc.SignInWithPassword(ctx, tn, "a@example.com", "new password"); err != nil {
		t.Fatalf("new password sign-in: %v", err)
	}
}

func TestUpdatePasswordGuards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	tn := allEnabledTenant()
	u := h.seedUser(t, tn.ID, "a@example.com", func(u *userdomain.User) {
		u.PasswordHash = h.hashPassword(t, "old password")
	})
	noPw := h.seedUser(t, tn.ID, "otp-only@example.com", nil)

	if err := h.svc.UpdatePassword(ctx, tn, u.ID, "sess", "wrong old", "new password"); !errors.Is(err, autherr.ErrPasswordConfirmationMismatch) {
		t.Fatalf("wrong old password: want confirmation mismatch, got %v", err)
	}
	if err := h.svc.UpdatePassword(ctx, tn, noPw.ID, "sess", "anything", "new password"); !errors.Is(err, autherr.ErrUserDoesNotHavePassword) {
		t.Fatalf("no password set: want does-not-have-password, got %v", err)
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	tn := allEnabledTenant()
	h.seedUser(t, tn.ID, "a@example.com", func(u *userdomain.User) {
		u.PasswordHash = h.hashPassword(t, "old password")
	})
	signedIn, err := h.svc.SignInWithPassword(ctx, tn, "a@example.com", "old password")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	if _, err := h.svc.SendPasswordResetCode(ctx, tn, "a@example.com", "https://app.example.com/reset"); err != nil {
		t.Fatalf("SendPasswordResetCode: %v", err)
	}
	code := codeFromMail(t, h.mail.last(t))

	if err := h.svc.CheckPasswordResetCode(ctx, tn, code); err != nil {
		t.Fatalf("CheckPasswordResetCode: %v", err)
	}
	if err := h.svc.ResetPassword(ctx, tn, code, "new password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// Reset revokes every session, including the one signed in above.
	if _, _, err := h.sessions.Refresh(ctx, tn.ID, signedIn.Tokens.RefreshToken); !errors.Is(err, autherr.ErrRefreshTokenExpiredOrRevoked) {
		t.Fatalf("session should be revoked after reset, got %v", err)
	}
	if _, err := h.svc.SignInWithPassword(ctx, tn, "a@example.com", "new password"); err != nil {
		t.Fatalf("sign in with reset password: %v", err)
	}

	if err := h.svc.ResetPassword(ctx, tn, code, "another password"); !errors.Is(err, autherr.ErrVerificationCodeAlreadyUsed) {
		t.Fatalf("reused reset code: want already-used, got %v", err)
	}

	if _, err := h.svc.SendPasswordResetCode(ctx, tn, "nobody@example.com", "https://app.example.com/reset"); !errors.Is(err, autherr.ErrUserNotFound) {
		t.Fatalf("unknown email: want user-not-found, got %v", err)
	}
}
