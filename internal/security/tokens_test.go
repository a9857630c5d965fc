package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	sessionID, userID, tenantID := "s1", "u1", "t1"

	access, exp, err := p.IssueAccess(sessionID, userID, tenantID)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" {
		t.Fatal("access token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.SessionID != sessionID || claims.Subject != userID || claims.TenantID != tenantID {
		t.Errorf("ValidateAccess: got session=%q sub=%q tenant=%q", claims.SessionID, claims.Subject, claims.TenantID)
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.ValidateAccess("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessExpired(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	p := NewTokenProvider(signer, pub, "test-issuer", "test-audience", -time.Minute)

	access, _, err := p.IssueAccess("s1", "u1", "t1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(access); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("want ErrTokenExpired, got %v", err)
	}
}

func TestTokenProvider_WrongIssuerRejected(t *testing.T) {
	signer, _ := ParsePrivateKey(testPrivateKeyPEM)
	pub, _ := ParsePublicKey(testPublicKeyPEM)
	issuerA := NewTokenProvider(signer, pub, "issuer-a", "test-audience", time.Minute)
	issuerB := NewTokenProvider(signer, pub, "issuer-b", "test-audience", time.Minute)

	access, _, err := issuerA.IssueAccess("s1", "u1", "t1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := issuerB.ValidateAccess(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("want ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestGenerateCode(t *testing.T) {
	a, err := GenerateCode(0)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if len(a) != DefaultCodeLength {
		t.Fatalf("default length: got %d, want %d", len(a), DefaultCodeLength)
	}
	b, err := GenerateCode(DefaultCodeLength)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if a == b {
		t.Fatal("two generated codes are identical")
	}
	for _, r := range a {
		if !((r >= 'a' && r <= 'z') || (r >= '2' && r <= '7')) {
			t.Fatalf("unexpected character %q in code", r)
		}
	}
}

func TestRefreshTokenHash(t *testing.T) {
	h := HashRefreshToken("tok")
	if h == "" || h == "tok" {
		t.Fatal("hash is empty or equals input")
	}
	if !RefreshTokenHashEqual("tok", h) {
		t.Fatal("hash of same token does not match")
	}
	if RefreshTokenHashEqual("other", h) {
		t.Fatal("hash of different token matches")
	}
}
