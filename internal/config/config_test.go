package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("default config should validate, got: %v", ValidationErrors(errs))
	}
}

func TestValidateCatchesBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero lock timeout", func(c *Config) { c.Session.LockTimeoutSeconds = 0 }, "session.lock_timeout_seconds"},
		{"negative poll interval", func(c *Config) { c.Session.PollIntervalMs = -1 }, "session.poll_interval_ms"},
		{"zero stop timeout", func(c *Config) { c.Session.StopTimeoutSeconds = 0 }, "session.stop_timeout_seconds"},
		{"zero retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"zero scrape limit", func(c *Config) { c.Scrape.DefaultLimit = 0 }, "scrape.default_limit"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"zero table rows", func(c *Config) { c.TUI.MaxTableRows = 0 }, "tui.max_table_rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected a validation error")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %s in %v", tt.field, ValidationErrors(errs))
			}
		})
	}
}

func TestResolveStorageRootTilde(t *testing.T) {
	p := PathsConfig{StorageRoot: "~/telegram-data"}
	resolved := p.ResolveStorageRoot()
	if strings.HasPrefix(resolved, "~") {
		t.Errorf("tilde not expanded: %s", resolved)
	}
	if !filepath.IsAbs(resolved) {
		t.Errorf("resolved path should be absolute: %s", resolved)
	}
}

func TestResolveStorageRootRelative(t *testing.T) {
	p := PathsConfig{StorageRoot: "data"}
	resolved := p.ResolveStorageRoot()
	if !filepath.IsAbs(resolved) {
		t.Errorf("relative path should be made absolute: %s", resolved)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	if cfg.Session.LockTimeout().Seconds() != 30 {
		t.Errorf("LockTimeout = %v", cfg.Session.LockTimeout())
	}
	if cfg.Session.PollInterval().Milliseconds() != 100 {
		t.Errorf("PollInterval = %v", cfg.Session.PollInterval())
	}
	if cfg.Session.StopTimeout().Seconds() != 5 {
		t.Errorf("StopTimeout = %v", cfg.Session.StopTimeout())
	}
	if cfg.Retry.BaseDelay().Milliseconds() != 1000 {
		t.Errorf("BaseDelay = %v", cfg.Retry.BaseDelay())
	}
}
