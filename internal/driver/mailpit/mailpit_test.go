package mailpit_test

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/example/mailroute/internal/driver"
	"github.com/example/mailroute/internal/driver/mailpit"
	"github.com/example/mailroute/internal/settings"
	"github.com/example/mailroute/internal/transport"
)

func storeWith(t *testing.T, values map[string]string) settings.Store {
	t.Helper()
	store := settings.NewMemoryStore(nil)
	for k, v := range values {
		if err := store.Set(settings.DriverKey(mailpit.Name, k), v); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return store
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		wantKind string
	}{
		{
			name:   "defaults are valid",
			values: nil,
		},
		{
			name:   "explicit host and port",
			values: map[string]string{"host": "127.0.0.1", "port": "2525"},
		},
		{
			name:     "port out of range",
			values:   map[string]string{"port": "70000"},
			wantKind: "invalid_port",
		},
		{
			name:     "port zero",
			values:   map[string]string{"port": "0"},
			wantKind: "invalid_port",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			d := mailpit.New(storeWith(t, tc.values))

			err := d.ValidateConfig()
			if tc.wantKind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var cfgErr *driver.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Kind != tc.wantKind {
				t.Fatalf("kind: got %q, want %q", cfgErr.Kind, tc.wantKind)
			}
		})
	}
}

func TestConfigureTransport(t *testing.T) {
	d := mailpit.New(storeWith(t, map[string]string{
		"host":       "mail.local",
		"port":       "2525",
		"use_tls":    "1",
		"force_from": "1",
		"from_email": "dev@example.com",
		"from_name":  "Dev Sender",
	}))

	var cfg transport.Config
	d.ConfigureTransport(&cfg)

	if cfg.Host != "mail.local" || cfg.Port != 2525 {
		t.Fatalf("endpoint: got %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Auth {
		t.Fatal("mailpit transport must not use authentication")
	}
	if cfg.Encryption != transport.EncryptionSTARTTLS {
		t.Fatalf("encryption: got %q", cfg.Encryption)
	}
	if cfg.FromEmail != "dev@example.com" || cfg.FromName != "Dev Sender" {
		t.Fatalf("forced sender: got %q / %q", cfg.FromEmail, cfg.FromName)
	}
}

func TestConfigureTransportDefaults(t *testing.T) {
	d := mailpit.New(storeWith(t, map[string]string{
		"from_email": "dev@example.com",
	}))

	var cfg transport.Config
	d.ConfigureTransport(&cfg)

	if cfg.Host != "localhost" || cfg.Port != 1025 {
		t.Fatalf("defaults: got %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Encryption != transport.EncryptionNone {
		t.Fatalf("encryption default: got %q", cfg.Encryption)
	}
	if cfg.FromEmail != "" {
		t.Fatal("sender must not be forced when force_from is unset")
	}
}

func TestConfigureTransportIgnoresInvalidForcedFrom(t *testing.T) {
	d := mailpit.New(storeWith(t, map[string]string{
		"force_from": "1",
		"from_email": "not-an-email",
	}))

	var cfg transport.Config
	d.ConfigureTransport(&cfg)

	if cfg.FromEmail != "" {
		t.Fatalf("invalid forced sender was applied: %q", cfg.FromEmail)
	}
}

func TestConnectionSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	d := mailpit.New(storeWith(t, map[string]string{
		"host": "127.0.0.1",
		"port": strconv.Itoa(port),
	}))

	res := d.TestConnection(context.Background())
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Message)
	}
	if !strings.Contains(res.Message, "127.0.0.1:"+strconv.Itoa(port)) {
		t.Fatalf("message does not name the endpoint: %s", res.Message)
	}
}

func TestConnectionFailure(t *testing.T) {
	// Reserve a port then close the listener so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	d := mailpit.New(storeWith(t, map[string]string{
		"host": "127.0.0.1",
		"port": strconv.Itoa(port),
	}), mailpit.WithDialTimeout(2*time.Second))

	start := time.Now()
	res := d.TestConnection(context.Background())
	if res.Success {
		t.Fatal("expected failure against closed port")
	}
	if !strings.Contains(res.Message, "Make sure Mailpit is running.") {
		t.Fatalf("unexpected failure message: %s", res.Message)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("probe did not stay within its timeout: %v", elapsed)
	}
}

func TestConnectionInvalidConfig(t *testing.T) {
	d := mailpit.New(storeWith(t, map[string]string{"port": "99999"}))

	res := d.TestConnection(context.Background())
	if res.Success {
		t.Fatal("expected failure for invalid configuration")
	}
	if !strings.Contains(res.Message, "Port") {
		t.Fatalf("unexpected message: %s", res.Message)
	}
}
