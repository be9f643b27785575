package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yasinhessnawi1/hideme-auth/internal/auth"
	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

func testJWTSettings() *config.JWTSettings {
	return &config.JWTSettings{
		Secret: "test-secret",
		Expiry: 15 * time.Minute,
		Issuer: "test-issuer",
	}
}

func TestIssueAndValidate(t *testing.T) {
	service := auth.NewJWTService(testJWTSettings())

	token, expiresAt, err := service.Issue(42)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token == "" {
		t.Fatal("Expected token to be generated")
	}
	if until := time.Until(expiresAt); until <= 14*time.Minute || until > 15*time.Minute {
		t.Errorf("Expected expiry about 15m away, got %v", until)
	}

	claims, err := service.Validate(token)
	if err != nil {
		t.Fatalf("Expected token to validate, got %v", err)
	}
	if claims.AccountID != 42 {
		t.Errorf("Expected account id 42, got %d", claims.AccountID)
	}
	if claims.Subject != "42" {
		t.Errorf("Expected subject '42', got %q", claims.Subject)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("Expected issuer 'test-issuer', got %q", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("Expected a token id")
	}
	if claims.IssuedAtTime().IsZero() {
		t.Error("Expected iat to be set")
	}
}

func TestIssuedAtKeepsMilliseconds(t *testing.T) {
	base := time.Now().Truncate(time.Second)

	// Every millisecond of a second survives the float encoding of iat
	for ms := 0; ms < 1000; ms += 7 {
		issued := base.Add(time.Duration(ms)*time.Millisecond + 456*time.Microsecond)
		service := auth.NewJWTService(testJWTSettings()).WithClock(func() time.Time { return issued })

		token, _, err := service.Issue(7)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		claims, err := service.Validate(token)
		if err != nil {
			t.Fatalf("Expected token to validate, got %v", err)
		}

		want := issued.Truncate(auth.TokenTimePrecision)
		if got := claims.IssuedAtTime(); !got.Equal(want) {
			t.Errorf("Expected iat %v, got %v", want, got)
		}
	}
}

func TestIssueWithoutSecret(t *testing.T) {
	service := auth.NewJWTService(&config.JWTSettings{})

	_, _, err := service.Issue(1)
	if !errors.Is(err, auth.ErrMissingSecret) {
		t.Errorf("Expected ErrMissingSecret, got %v", err)
	}
}

func TestIssueUsesDefaults(t *testing.T) {
	service := auth.NewJWTService(&config.JWTSettings{Secret: "s"})

	token, expiresAt, err := service.Issue(1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if time.Until(expiresAt) < 89*24*time.Hour {
		t.Errorf("Expected the 90 day default expiry, got %v", time.Until(expiresAt))
	}

	claims, err := service.Validate(token)
	if err != nil {
		t.Fatalf("Expected token to validate, got %v", err)
	}
	if claims.Issuer != "hideme-auth" {
		t.Errorf("Expected default issuer, got %q", claims.Issuer)
	}
}

func TestValidateRejections(t *testing.T) {
	cfg := testJWTSettings()
	service := auth.NewJWTService(cfg)

	valid, _, err := service.Issue(7)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	otherSecret, _, _ := auth.NewJWTService(&config.JWTSettings{Secret: "other", Issuer: cfg.Issuer}).Issue(7)
	otherIssuer, _, _ := auth.NewJWTService(&config.JWTSettings{Secret: cfg.Secret, Issuer: "someone-else"}).Issue(7)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{AccountID: 7})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", otherSecret},
		{"wrong issuer", otherIssuer},
		{"alg none", noneToken},
		{"tampered signature", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.Validate(tt.token)
			if claims != nil {
				t.Error("Expected nil claims")
			}
			if !errors.Is(err, utils.ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestValidateExpiredToken(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	issuer := auth.NewJWTService(testJWTSettings()).WithClock(func() time.Time { return issuedAt })

	token, _, err := issuer.Issue(3)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	// 15 minute expiry, an hour has passed
	_, err = auth.NewJWTService(testJWTSettings()).Validate(token)
	if !errors.Is(err, utils.ErrInvalidToken) {
		t.Errorf("Expected expired token to be invalid, got %v", err)
	}

	// Same token is still valid from the issuer's point in time
	if _, err := issuer.Validate(token); err != nil {
		t.Errorf("Expected token to be valid at issue time, got %v", err)
	}
}
