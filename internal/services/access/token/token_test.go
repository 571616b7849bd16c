package token

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/platewire/boardgate/internal/platform/errors"
)

func testConfig(now time.Time) Config {
	return Config{
		Issuer:   "boardgate",
		Audience: "boardgate-portal",
		Key:      []byte("test-signing-key"),
		TTL:      time.Hour,
		Now:      func() time.Time { return now },
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BOARDGATE_TOKEN_SIGNING_KEY", "")

	if _, err := LoadConfigFromEnv(nil); err == nil {
		t.Fatal("expected error when signing key is missing")
	}

	t.Setenv("BOARDGATE_TOKEN_SIGNING_KEY", "secret")
	t.Setenv("BOARDGATE_TOKEN_ISSUER", "issuer")
	t.Setenv("BOARDGATE_TOKEN_AUDIENCE", "audience")
	t.Setenv("BOARDGATE_TOKEN_TTL", "30m")

	cfg, err := LoadConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load token config: %v", err)
	}
	if cfg.Issuer != "issuer" || cfg.Audience != "audience" {
		t.Fatal("expected issuer and audience to be loaded")
	}
	if string(cfg.Key) != "secret" {
		t.Fatal("expected signing key to be loaded")
	}
	if cfg.TTL != 30*time.Minute {
		t.Fatalf("expected ttl 30m, got %s", cfg.TTL)
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("BOARDGATE_TOKEN_SIGNING_KEY", "secret")
	t.Setenv("BOARDGATE_TOKEN_ISSUER", "")
	t.Setenv("BOARDGATE_TOKEN_AUDIENCE", "")
	t.Setenv("BOARDGATE_TOKEN_TTL", "")

	cfg, err := LoadConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load token config: %v", err)
	}
	if cfg.Issuer != "boardgate" || cfg.Audience != "boardgate-portal" {
		t.Fatal("expected default issuer and audience")
	}
	if cfg.TTL != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", cfg.TTL)
	}
}

func TestIssueAndValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cfg := testConfig(now)

	signed, err := Issue("ceo@example.com", "pin", cfg)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if strings.Count(signed, ".") != 2 {
		t.Fatal("expected a compact JWT")
	}

	claims, err := Validate(signed, cfg)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Identifier != "ceo@example.com" {
		t.Fatalf("expected identifier claim, got %s", claims.Identifier)
	}
	if claims.Method != "pin" {
		t.Fatalf("expected method claim pin, got %s", claims.Method)
	}
	if claims.JWTID == "" {
		t.Fatal("expected a jti claim")
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry at issue time plus ttl, got %s", claims.ExpiresAt)
	}
}

func TestValidateExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cfg := testConfig(now)

	signed, err := Issue("ceo@example.com", "biometric", cfg)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	late := testConfig(now.Add(2 * time.Hour))
	_, err = Validate(signed, late)
	if !apperrors.HasCode(err, apperrors.CodeTokenExpired) {
		t.Fatalf("expected token expired error, got %v", err)
	}
}

func TestValidateWrongKey(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cfg := testConfig(now)

	signed, err := Issue("ceo@example.com", "pin", cfg)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	other := testConfig(now)
	other.Key = []byte("a-different-key")
	_, err = Validate(signed, other)
	if !apperrors.HasCode(err, apperrors.CodeTokenInvalid) {
		t.Fatalf("expected token invalid error, got %v", err)
	}
}

func TestValidateIssuerMismatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cfg := testConfig(now)

	signed, err := Issue("ceo@example.com", "pin", cfg)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	other := testConfig(now)
	other.Issuer = "someone-else"
	_, err = Validate(signed, other)
	if !apperrors.HasCode(err, apperrors.CodeTokenInvalid) {
		t.Fatalf("expected token invalid error, got %v", err)
	}
}

func TestValidateEmptyToken(t *testing.T) {
	cfg := testConfig(time.Now())
	if _, err := Validate("  ", cfg); !apperrors.HasCode(err, apperrors.CodeTokenInvalid) {
		t.Fatal("expected token invalid error for empty input")
	}
}
