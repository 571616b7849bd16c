package gate

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("BOARDGATE_HTTP_ADDR", "")
	t.Setenv("BOARDGATE_HEALTH_ADDR", "")
	t.Setenv("BOARDGATE_DEBUG", "")

	fs := flag.NewFlagSet("gate", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8087" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != "localhost:8088" {
		t.Fatalf("expected default health addr, got %q", cfg.GRPCAddr)
	}
	if cfg.Debug {
		t.Fatal("expected debug to default to false")
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv("BOARDGATE_HTTP_ADDR", "env-http")
	t.Setenv("BOARDGATE_DEBUG", "true")

	fs := flag.NewFlagSet("gate", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "env-http" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
	if !cfg.Debug {
		t.Fatal("expected debug from env")
	}
}

func TestParseConfigFlagOverride(t *testing.T) {
	t.Setenv("BOARDGATE_HTTP_ADDR", "env-http")

	fs := flag.NewFlagSet("gate", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "flag-http", "-health-addr", ""})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != "" {
		t.Fatalf("expected empty health addr, got %q", cfg.GRPCAddr)
	}
}
