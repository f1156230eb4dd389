package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DBPath != "eduassist.sqlite" {
		t.Fatalf("unexpected DB path: %q", cfg.DBPath)
	}

	want := []string{"wikipedia.org", "educative.io", "developer.mozilla.org"}
	if len(cfg.AllowedDomains) != len(want) {
		t.Fatalf("unexpected allowed domains: %v", cfg.AllowedDomains)
	}
	for i := range want {
		if cfg.AllowedDomains[i] != want[i] {
			t.Fatalf("unexpected allowed domain at %d: got %q want %q", i, cfg.AllowedDomains[i], want[i])
		}
	}

	if cfg.SummaryCacheSize != 0 {
		t.Fatalf("expected summary cache to be disabled by default, got size %d", cfg.SummaryCacheSize)
	}

	if cfg.SummaryCacheTTL != 24*time.Hour {
		t.Fatalf("unexpected cache TTL: %s", cfg.SummaryCacheTTL)
	}

	if cfg.ChatLogRetentionDays != 90 {
		t.Fatalf("unexpected retention: %d", cfg.ChatLogRetentionDays)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing API key to fail")
	}
}

func TestLoadRequiresJWTSecretWithHTTPAddr(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing JWT secret to fail")
	}
}

func TestLoadParsesAllowedUsers(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ALLOWED_USERS", "1,42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.AllowedUsers) != 2 || cfg.AllowedUsers[1] != 42 {
		t.Fatalf("unexpected allowed users: %v", cfg.AllowedUsers)
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != slog.LevelDebug {
		t.Fatalf("unexpected level: %s", level)
	}

	if _, err = ParseLogLevel("loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

func TestLoadAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	auth, err := LoadAuth()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth.JWTSecret != "s3cret" {
		t.Fatalf("unexpected secret: %q", auth.JWTSecret)
	}

	t.Setenv("JWT_SECRET", "")
	if _, err = LoadAuth(); err == nil {
		t.Fatalf("expected missing JWT secret to fail")
	}
}
