package audit

import "testing"

func TestParseRoute(t *testing.T) {
	tests := []struct {
		method, path     string
		action, resource string
	}{
		{"POST", "/auth/otp/send-sign-in-code", "send_sign_in_code", "otp"},
		{"POST", "/auth/otp/sign-in", "sign_in", "otp"},
		{"POST", "/auth/otp/sign-in/check", "sign_in_check", "otp"},
		{"POST", "/auth/mfa/sign-in", "sign_in", "mfa"},
		{"POST", "/auth/password/sign-up", "sign_up", "password"},
		{"POST", "/auth/password/reset", "reset", "password"},
		{"POST", "/contact-channels/verify", "verify", "contact_channel"},
		{"POST", "/contact-channels/send-verification-code", "send_verification_code", "contact_channel"},
		{"POST", "/auth/passkey/initiate", "initiate", "passkey"},
		{"POST", "/auth/sessions", "create", "session"},
		{"DELETE", "/auth/sessions/current", "delete", "session"},
		{"POST", "/auth/refresh", "refresh", "session"},
		{"GET", "/", "unknown", "unknown"},
	}
	for _, tt := range tests {
		got := ParseRoute(tt.method, tt.path)
		if got.Action != tt.action || got.Resource != tt.resource {
			t.Errorf("ParseRoute(%s %s) = %s/%s, want %s/%s",
				tt.method, tt.path, got.Action, got.Resource, tt.action, tt.resource)
		}
	}
}
