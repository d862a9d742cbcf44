package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func newTestService(t *testing.T) *AuthService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	})

	svc, err := NewAuthService(privPEM, pubPEM, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func TestTokenPairRoundTrip(t *testing.T) {
	svc := newTestService(t)

	pair, err := svc.GenerateTokenPair(42, "recruiter")
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}

	access, err := svc.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if access.UserID != 42 || access.Role != "recruiter" || access.TokenType != "access" {
		t.Fatalf("unexpected access claims: %+v", access)
	}

	refresh, err := svc.ValidateToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if refresh.TokenType != "refresh" {
		t.Fatalf("unexpected refresh token type: %q", refresh.TokenType)
	}
	if refresh.ID == "" {
		t.Fatal("refresh token must carry a jti")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := svc.ValidateToken(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	issuer := newTestService(t)
	verifier := newTestService(t)

	pair, err := issuer.GenerateTokenPair(1, "student")
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}

	if _, err := verifier.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestPasswordHashing(t *testing.T) {
	svc := newTestService(t)

	hash, err := svc.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !svc.CheckPasswordHash("correct horse battery staple", hash) {
		t.Fatal("expected password to verify")
	}
	if svc.CheckPasswordHash("wrong password", hash) {
		t.Fatal("expected mismatch to fail")
	}
}
