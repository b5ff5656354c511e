package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_SEED", "false")
	t.Setenv("ACADEMIC_TERM_WEEKS", "12")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Seed {
		t.Error("Storage.Seed should be overridden to false")
	}
	if cfg.Storage.Driver != StorageMemory {
		t.Errorf("Storage.Driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Academic.TermWeeks != 12 {
		t.Errorf("Academic.TermWeeks = %d, want 12", cfg.Academic.TermWeeks)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
	if cfg.SessionTTL() != 24*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL())
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := []byte(`
server:
  port: "7000"
jwt:
  secret: from-file
academic:
  term_start: "2025-01-06"
  timezone: UTC
`)
	if err := os.WriteFile(path, yamlDoc, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "7000" || cfg.JWT.Secret != "from-file" {
		t.Errorf("yaml values not applied: port=%q secret=%q", cfg.Server.Port, cfg.JWT.Secret)
	}
	start := cfg.TermStartDate()
	if start.Weekday() != time.Monday || start.Location() != time.UTC {
		t.Errorf("TermStartDate = %v", start)
	}
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"bad ttl", func(c *Config) { c.Session.TTL = "forever" }},
		{"bad term start", func(c *Config) { c.Academic.TermStart = "June 2" }},
		{"zero otp length", func(c *Config) { c.Session.OTPLength = 0 }},
		{"redis without url", func(c *Config) { c.Redis.Enabled = true; c.Redis.URL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			cfg.JWT.Secret = "s"
			tt.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
