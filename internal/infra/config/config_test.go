package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "taskhub" {
		t.Fatalf("expected default app name taskhub, got %q", cfg.App.Name)
	}
	if cfg.JWT.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl 15m, got %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RefreshTokenTTL != 720*time.Hour {
		t.Fatalf("expected default refresh ttl 720h, got %v", cfg.JWT.RefreshTokenTTL)
	}
}

func TestLoadClampsNonPositiveTokenTTLs(t *testing.T) {
	t.Setenv("TASKHUB_JWT_ACCESS_TOKEN_TTL", "-5m")
	t.Setenv("TASKHUB_JWT_REFRESH_TOKEN_TTL", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.JWT.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected negative access ttl clamped to 15m, got %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RefreshTokenTTL != 720*time.Hour {
		t.Fatalf("expected zero refresh ttl clamped to 720h, got %v", cfg.JWT.RefreshTokenTTL)
	}
}
