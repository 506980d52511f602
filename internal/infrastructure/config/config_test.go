package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"AUTH_JWT_SECRET": "dev-secret",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" {
		t.Fatalf("unexpected defaults: port=%s env=%s", cfg.Port, cfg.Env)
	}
	if cfg.Auth.TokenTTL() != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.Auth.TokenTTL())
	}
	if cfg.Auth.BcryptCost != 10 || cfg.Auth.StoreTimeout != 3*time.Second {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.Auth.StudentEmailSuffix != "-edu.ma" {
		t.Fatalf("unexpected suffix: %s", cfg.Auth.StudentEmailSuffix)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"AUTH_JWT_SECRET":        "dev-secret",
		"AUTH_TOKEN_TTL_SECONDS": "600",
		"AUTH_STORE_TIMEOUT":     "500ms",
		"CORS_ALLOWED_ORIGINS":   "https://a.ma,https://b.ma",
		"MONGO_DB":               "auth_test",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Auth.TokenTTL() != 10*time.Minute {
		t.Fatalf("unexpected ttl: %s", cfg.Auth.TokenTTL())
	}
	if cfg.Auth.StoreTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected store timeout: %s", cfg.Auth.StoreTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.Mongo.Database != "auth_test" {
		t.Fatalf("unexpected database: %s", cfg.Mongo.Database)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing secret", map[string]string{}, "AUTH_JWT_SECRET is required"},
		{"short secret in production", map[string]string{"ENV": "production", "AUTH_JWT_SECRET": "short"}, "at least 32 bytes"},
		{"bad cost", map[string]string{"AUTH_JWT_SECRET": "s", "AUTH_BCRYPT_COST": "99"}, "AUTH_BCRYPT_COST"},
		{"zero ttl", map[string]string{"AUTH_JWT_SECRET": "s", "AUTH_TOKEN_TTL_SECONDS": "0"}, "AUTH_TOKEN_TTL_SECONDS"},
		{"half admin", map[string]string{"AUTH_JWT_SECRET": "s", "ADMIN_BOOTSTRAP_USERNAME": "root"}, "set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(tt.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
