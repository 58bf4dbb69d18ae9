package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": testSecret,
	}))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Session.TTL != 24*time.Hour || cfg.Session.CookieName != "seocrm_session" {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.StoreTimeout != 10*time.Second {
		t.Fatalf("unexpected store timeout %s", cfg.StoreTimeout)
	}
	if cfg.IsProduction() {
		t.Fatalf("development must not be production")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":    testSecret,
		"ENV":           "production",
		"SESSION_TTL":   "2h",
		"STORE_TIMEOUT": "750ms",
		"REDIS_DB":      "3",
	}))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if !cfg.IsProduction() || cfg.Session.TTL != 2*time.Hour || cfg.StoreTimeout != 750*time.Millisecond || cfg.Redis.DB != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadWith_SecretRequired(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err == nil {
		t.Fatalf("expected missing JWT_SECRET to fail")
	}

	_, err = LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "short"}))
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("expected short secret to fail, got %v", err)
	}
}
