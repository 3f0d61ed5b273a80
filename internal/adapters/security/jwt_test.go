package security

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/ports"
)

func TestJWTSignerRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("new signer failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	want := ports.AuthClaims{
		UserID:    uuid.New(),
		Email:     "ana@example.com",
		JTI:       uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	raw, err := signer.Sign(want)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	got, err := signer.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got.UserID != want.UserID || got.Email != want.Email || got.JTI != want.JTI {
		t.Fatalf("claims mismatch: got %+v want %+v", got, want)
	}
	if !got.IssuedAt.Equal(want.IssuedAt) || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("timestamps mismatch: got %+v want %+v", got, want)
	}
	if got.KeyID != "test-key-1" {
		t.Fatalf("expected kid test-key-1, got %q", got.KeyID)
	}
}

func TestJWTSignerRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("new signer failed: %v", err)
	}

	past := time.Now().UTC().Add(-2 * time.Hour)
	raw, err := signer.Sign(ports.AuthClaims{
		UserID:    uuid.New(),
		Email:     "ana@example.com",
		JTI:       uuid.New(),
		IssuedAt:  past,
		ExpiresAt: past.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := signer.ParseAndValidate(raw); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestJWTSignerRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("new signer failed: %v", err)
	}
	other, err := NewEphemeralJWTSigner("test-key-2")
	if err != nil {
		t.Fatalf("new signer failed: %v", err)
	}

	now := time.Now().UTC()
	raw, err := other.Sign(ports.AuthClaims{
		UserID:    uuid.New(),
		Email:     "ana@example.com",
		JTI:       uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := signer.ParseAndValidate(raw); err == nil {
		t.Fatalf("expected foreign signature to be rejected")
	}
}

func TestPublicJWKsShape(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("jwks-key")
	if err != nil {
		t.Fatalf("new signer failed: %v", err)
	}
	keys, err := signer.PublicJWKs()
	if err != nil {
		t.Fatalf("jwks failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected one key, got %d", len(keys))
	}
	key := keys[0]
	if key["kid"] != "jwks-key" || key["kty"] != "RSA" || key["alg"] != "RS256" {
		t.Fatalf("unexpected jwk header fields: %+v", key)
	}
	n, _ := key["n"].(string)
	if n == "" || strings.ContainsAny(n, "+/=") {
		t.Fatalf("expected base64url modulus, got %q", n)
	}
}
