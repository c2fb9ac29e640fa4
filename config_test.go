package authcore

import (
	"testing"
	"time"

	"github.com/arkivault/authcore/token"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{
		Secrets: SecretsConfig{
			CurrentKeyVersion: 1,
			Keys:              map[int][]byte{1: []byte("11111111111111111111111111111111")},
		},
	}
	cfg.applyDefaults()

	if cfg.Token.Issuer == "" || cfg.Token.Audience == "" {
		t.Fatal("token identity defaults missing")
	}
	if cfg.Token.AccessTTL == 0 || cfg.Token.RefreshTTL == 0 {
		t.Fatal("TTL defaults missing")
	}
	if cfg.Token.SigningMethod != token.MethodEd25519 {
		t.Fatalf("default signing method = %q", cfg.Token.SigningMethod)
	}
	if cfg.Password.Memory == 0 || cfg.Password.Time == 0 {
		t.Fatal("password defaults missing")
	}
	if cfg.TOTP.Digits != 6 || cfg.TOTP.Period != 30 || cfg.TOTP.Skew != 1 {
		t.Fatalf("totp defaults = %+v", cfg.TOTP)
	}
	if cfg.Audit.BufferSize == 0 {
		t.Fatal("audit buffer default missing")
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := testConfig()
	cfg.applyDefaults()

	if cfg.Token.AccessTTL != 5*time.Minute {
		t.Fatalf("explicit AccessTTL overridden: %s", cfg.Token.AccessTTL)
	}
	if cfg.Token.SigningMethod != token.MethodHS256 {
		t.Fatalf("explicit signing method overridden: %q", cfg.Token.SigningMethod)
	}
	if cfg.Password != fastPasswordParams() {
		t.Fatalf("explicit password params overridden: %+v", cfg.Password)
	}
}

func TestConfigValidate(t *testing.T) {
	good := testConfig()
	good.applyDefaults()
	if err := good.validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no keyring", func(c *Config) { c.Secrets.Keys = nil }},
		{"short key", func(c *Config) { c.Secrets.Keys = map[int][]byte{1: []byte("short")} }},
		{"access outlives refresh", func(c *Config) { c.Token.AccessTTL = c.Token.RefreshTTL * 2 }},
		{"equal TTLs", func(c *Config) { c.Token.AccessTTL = c.Token.RefreshTTL }},
	}
	for _, tc := range tests {
		cfg := testConfig()
		cfg.applyDefaults()
		tc.mutate(&cfg)
		if err := cfg.validate(); err == nil {
			t.Fatalf("%s: validate accepted a broken config", tc.name)
		}
	}
}
