package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenIssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("s3cret", WithIssuer("test-issuer"))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, expiresAt, err := issuer.Issue("user-42", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-42" || claims.Issuer != "test-issuer" {
		t.Fatalf("unexpected claims: %+v", claims.RegisteredClaims)
	}
	if claims.ID == "" {
		t.Fatalf("expected token id")
	}
}

func TestTokenVerifyRejects(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer, err := NewTokenIssuer("s3cret", WithClock(clock))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, _, err := issuer.Issue("user-1", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, _ := NewTokenIssuer("different", WithClock(clock))
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature failure, got %v", err)
	}

	foreign, _ := NewTokenIssuer("s3cret", WithIssuer("elsewhere"), WithClock(clock))
	if _, err := foreign.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer failure, got %v", err)
	}

	later, _ := NewTokenIssuer("s3cret", WithClock(func() time.Time { return now.Add(2 * time.Minute) }))
	if _, err := later.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expiry failure, got %v", err)
	}

	if _, err := issuer.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected empty token failure, got %v", err)
	}
}

func TestTokenIssuerValidation(t *testing.T) {
	if _, err := NewTokenIssuer("  "); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	issuer, _ := NewTokenIssuer("s3cret")
	if _, _, err := issuer.Issue("", time.Minute); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty user, got %v", err)
	}
	if _, _, err := issuer.Issue("u", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero ttl, got %v", err)
	}
}

func TestServiceKeyRoundTrip(t *testing.T) {
	key, err := GenerateServiceKey()
	if err != nil {
		t.Fatalf("GenerateServiceKey: %v", err)
	}
	if !strings.HasPrefix(key.Plaintext, ServiceKeyPrefix) {
		t.Fatalf("unexpected key format: %s", key.Plaintext)
	}
	if strings.Contains(key.SecretHash, ".") || strings.Contains(key.Plaintext, key.SecretHash) {
		t.Fatalf("plaintext must not embed the stored hash")
	}

	keyID, secret, err := ParseServiceKey(key.Plaintext)
	if err != nil {
		t.Fatalf("ParseServiceKey: %v", err)
	}
	if keyID != key.KeyID {
		t.Fatalf("key id mismatch: %s != %s", keyID, key.KeyID)
	}
	if !VerifyServiceKeySecret(key.SecretHash, secret) {
		t.Fatalf("expected secret to verify")
	}
	if VerifyServiceKeySecret(key.SecretHash, secret+"x") {
		t.Fatalf("tampered secret must not verify")
	}
}

func TestParseServiceKeyRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "abc.def", "lh_", "lh_id", "lh_.secret", "lh_id.", "lh_a.b.c"} {
		if _, _, err := ParseServiceKey(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
