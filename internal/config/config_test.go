package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Domain != "localhost" {
		t.Errorf("expected default domain, got %q", cfg.Domain)
	}
	if cfg.SSHIdleTimeout != 5*time.Minute {
		t.Errorf("expected default idle timeout, got %v", cfg.SSHIdleTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "domain: example.org\nssh_addr: \":22\"\nssh_idle_timeout: 30s\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Domain != "example.org" {
		t.Errorf("expected domain example.org, got %q", cfg.Domain)
	}
	if cfg.SSHAddr != ":22" {
		t.Errorf("expected ssh addr :22, got %q", cfg.SSHAddr)
	}
	if cfg.SSHIdleTimeout != 30*time.Second {
		t.Errorf("expected 30s idle timeout, got %v", cfg.SSHIdleTimeout)
	}
	// Unset keys keep their defaults.
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr, got %q", cfg.HTTPAddr)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RETROWEB_DOMAIN", "env.example")
	t.Setenv("RETROWEB_SSH_IDLE_TIMEOUT", "1m")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Domain != "env.example" {
		t.Errorf("expected env domain, got %q", cfg.Domain)
	}
	if cfg.SSHIdleTimeout != time.Minute {
		t.Errorf("expected 1m idle timeout, got %v", cfg.SSHIdleTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty domain", func(c *Config) { c.Domain = "" }, ErrNoDomain},
		{"zero timeout", func(c *Config) { c.SSHIdleTimeout = 0 }, ErrBadTimeout},
		{"zero message size", func(c *Config) { c.MessageMaxSize = 0 }, ErrBadMessageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
