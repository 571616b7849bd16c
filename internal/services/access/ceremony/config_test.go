package ceremony

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("BOARDGATE_WEBAUTHN_RP_DISPLAY_NAME", "")
	t.Setenv("BOARDGATE_WEBAUTHN_RP_ID", "")
	t.Setenv("BOARDGATE_WEBAUTHN_RP_ORIGINS", "")
	t.Setenv("BOARDGATE_WEBAUTHN_SESSION_TTL", "")

	cfg := LoadConfigFromEnv()
	if cfg.RPDisplayName != "Boardgate" {
		t.Fatalf("unexpected display name %q", cfg.RPDisplayName)
	}
	if cfg.RPID != "localhost" {
		t.Fatalf("unexpected rp id %q", cfg.RPID)
	}
	if len(cfg.RPOrigins) == 0 {
		t.Fatal("expected default origins")
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Fatalf("unexpected ttl %v", cfg.SessionTTL)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("BOARDGATE_WEBAUTHN_RP_DISPLAY_NAME", "Board Portal")
	t.Setenv("BOARDGATE_WEBAUTHN_RP_ID", "portal.example.com")
	t.Setenv("BOARDGATE_WEBAUTHN_RP_ORIGINS", "https://portal.example.com,https://admin.example.com")
	t.Setenv("BOARDGATE_WEBAUTHN_SESSION_TTL", "90s")

	cfg := LoadConfigFromEnv()
	if cfg.RPDisplayName != "Board Portal" {
		t.Fatalf("unexpected display name %q", cfg.RPDisplayName)
	}
	if cfg.RPID != "portal.example.com" {
		t.Fatalf("unexpected rp id %q", cfg.RPID)
	}
	if len(cfg.RPOrigins) != 2 || cfg.RPOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins %v", cfg.RPOrigins)
	}
	if cfg.SessionTTL != 90*time.Second {
		t.Fatalf("unexpected ttl %v", cfg.SessionTTL)
	}
}
