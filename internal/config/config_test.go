package config_test

import (
	"testing"

	"github.com/example/mailroute/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MAILROUTE_SETTINGS_PATH", "")
	t.Setenv("MAILROUTE_ADMIN_EMAIL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Env != "development" {
		t.Fatalf("App.Env: got %q", cfg.App.Env)
	}
	if cfg.App.LogLevel != "info" {
		t.Fatalf("App.LogLevel: got %q", cfg.App.LogLevel)
	}
	if cfg.Settings.Path != "mailroute-settings.json" {
		t.Fatalf("Settings.Path: got %q", cfg.Settings.Path)
	}
	if cfg.Settings.AdminEmail != "" {
		t.Fatalf("Settings.AdminEmail: got %q", cfg.Settings.AdminEmail)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAILROUTE_SETTINGS_PATH", "/var/lib/mailroute/settings.json")
	t.Setenv("MAILROUTE_ADMIN_EMAIL", "admin@example.com")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("App.Env: got %q", cfg.App.Env)
	}
	if cfg.App.LogLevel != "debug" {
		t.Fatalf("App.LogLevel: got %q", cfg.App.LogLevel)
	}
	if cfg.Settings.Path != "/var/lib/mailroute/settings.json" {
		t.Fatalf("Settings.Path: got %q", cfg.Settings.Path)
	}
	if cfg.Settings.AdminEmail != "admin@example.com" {
		t.Fatalf("Settings.AdminEmail: got %q", cfg.Settings.AdminEmail)
	}
}

func TestLoadTrimsWhitespace(t *testing.T) {
	t.Setenv("APP_ENV", "  staging  ")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App.Env != "staging" {
		t.Fatalf("App.Env: got %q", cfg.App.Env)
	}
}
