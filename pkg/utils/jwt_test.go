package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func configureJWTForTest(t *testing.T, secret string, expirationHours int) {
	t.Helper()

	originalSecret := append([]byte(nil), jwtSecret...)
	originalExpiration := jwtExpirationHours

	t.Cleanup(func() {
		jwtSecret = originalSecret
		jwtExpirationHours = originalExpiration
	})

	ConfigureJWT(secret, expirationHours)
}

func TestConfigureJWT(t *testing.T) {
	t.Run("updates secret and expiration when valid values are provided", func(t *testing.T) {
		configureJWTForTest(t, "test-secret", 72)

		if got := string(jwtSecret); got != "test-secret" {
			t.Fatalf("expected jwt secret to be %q, got %q", "test-secret", got)
		}
		if jwtExpirationHours != 72 {
			t.Fatalf("expected jwt expiration to be %d, got %d", 72, jwtExpirationHours)
		}
	})

	t.Run("ignores empty secret and non-positive expiration", func(t *testing.T) {
		configureJWTForTest(t, "initial-secret", 24)

		ConfigureJWT("", 0)

		if got := string(jwtSecret); got != "initial-secret" {
			t.Fatalf("expected jwt secret to remain %q, got %q", "initial-secret", got)
		}
		if jwtExpirationHours != 24 {
			t.Fatalf("expected jwt expiration to remain %d, got %d", 24, jwtExpirationHours)
		}
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Run("round trip preserves the fid", func(t *testing.T) {
		configureJWTForTest(t, "roundtrip-secret", 1)

		token, err := GenerateToken(4821)
		if err != nil {
			t.Fatalf("failed generating token: %v", err)
		}

		claims, err := ValidateToken(token)
		if err != nil {
			t.Fatalf("failed validating token: %v", err)
		}
		if claims.Fid != 4821 {
			t.Fatalf("expected fid 4821, got %d", claims.Fid)
		}
		if claims.Subject != "4821" {
			t.Fatalf("expected subject 4821, got %q", claims.Subject)
		}
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		configureJWTForTest(t, "secret-a", 1)
		token, err := GenerateToken(7)
		if err != nil {
			t.Fatalf("failed generating token: %v", err)
		}

		ConfigureJWT("secret-b", 1)
		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected validation to fail under a different secret")
		}
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		configureJWTForTest(t, "expiry-secret", 1)

		claims := Claims{
			Fid: 7,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
		if err != nil {
			t.Fatalf("failed signing expired token: %v", err)
		}

		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected validation to fail for an expired token")
		}
	})

	t.Run("rejects a token without a fid", func(t *testing.T) {
		configureJWTForTest(t, "fid-secret", 1)

		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
		if err != nil {
			t.Fatalf("failed signing token: %v", err)
		}

		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected validation to fail for a zero fid")
		}
	})

	t.Run("rejects non-HMAC signing methods", func(t *testing.T) {
		configureJWTForTest(t, "method-secret", 1)

		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("failed generating rsa key: %v", err)
		}

		claims := Claims{
			Fid: 7,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		if err != nil {
			t.Fatalf("failed signing rsa token: %v", err)
		}

		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected validation to reject an RS256 token")
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		configureJWTForTest(t, "garbage-secret", 1)

		for _, token := range []string{"", "abc", strings.Repeat("x.", 40)} {
			if _, err := ValidateToken(token); err == nil {
				t.Fatalf("expected validation to fail for %q", token)
			}
		}
	})
}
