package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MEDIAVAULT_AUTH__JWT_SECRET", "")

	if _, err := load(""); err != ErrMissingJWTSecret {
		t.Fatalf("expected ErrMissingJWTSecret, got %v", err)
	}

	t.Setenv("MEDIAVAULT_AUTH__JWT_SECRET", "unit-secret")
	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Username != "admin" || cfg.Auth.Password != "password123" {
		t.Fatalf("unexpected credential defaults: %+v", cfg.Auth)
	}
	if cfg.Auth.AccessTTL != 15*time.Minute {
		t.Fatalf("unexpected access ttl: %s", cfg.Auth.AccessTTL)
	}
	if cfg.Enrichment.BatchSize != 50 || cfg.Enrichment.DelayBetweenCalls != time.Second {
		t.Fatalf("unexpected enrichment defaults: %+v", cfg.Enrichment)
	}
	if !cfg.ResolveCookieSecure() {
		t.Fatalf("production default should resolve cookie_secure=true")
	}
}

func TestLegacyEnvOverridesWin(t *testing.T) {
	t.Setenv("MEDIAVAULT_AUTH__JWT_SECRET", "prefixed-secret")
	t.Setenv("JWT_SECRET", "legacy-secret")
	t.Setenv("AUTH_USERNAME", "curator")
	t.Setenv("AUTH_PASSWORD", "hunter2")
	t.Setenv("COOKIE_SECURE", "false")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "legacy-secret" {
		t.Fatalf("legacy JWT_SECRET must win, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.Username != "curator" || cfg.Auth.Password != "hunter2" {
		t.Fatalf("legacy credentials not applied: %+v", cfg.Auth)
	}
	if cfg.ResolveCookieSecure() {
		t.Fatalf("COOKIE_SECURE=false must disable the Secure attribute")
	}
}

func TestCookieSecureAutoFollowsEnvironment(t *testing.T) {
	t.Setenv("MEDIAVAULT_AUTH__JWT_SECRET", "unit-secret")
	t.Setenv("MEDIAVAULT_ENVIRONMENT", "development")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("environment override not applied: %q", cfg.Environment)
	}
	if cfg.ResolveCookieSecure() {
		t.Fatalf("auto cookie_secure should be false in development")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("MEDIAVAULT_AUTH__JWT_SECRET", "unit-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("server:\n  addr: \":9090\"\nauth:\n  access_ttl: 5m\n  issuer: test-issuer\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("file override not applied: %q", cfg.Server.Addr)
	}
	if cfg.Auth.AccessTTL != 5*time.Minute || cfg.Auth.Issuer != "test-issuer" {
		t.Fatalf("auth overrides not applied: %+v", cfg.Auth)
	}
}

func TestValidateRejectsBadTTLs(t *testing.T) {
	cfg := defaults()
	cfg.Auth.JWTSecret = "s"
	cfg.Auth.AccessTTL = 2 * time.Hour
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected access_ttl validation failure")
	}

	cfg = defaults()
	cfg.Auth.JWTSecret = "s"
	cfg.Auth.RefreshTTL = cfg.Auth.AccessTTL
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected refresh_ttl validation failure")
	}
}
