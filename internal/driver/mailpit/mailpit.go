// Package mailpit implements the development SMTP driver. Mailpit is a
// local mail-testing tool; this driver points the generic transport at it
// and is the simplest reference implementation of the driver contract.
package mailpit

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/example/mailroute/internal/driver"
	"github.com/example/mailroute/internal/message"
	"github.com/example/mailroute/internal/settings"
	"github.com/example/mailroute/internal/transport"
)

// Name is the driver's registry slug.
const Name = "mailpit"

const (
	defaultHost = "localhost"
	defaultPort = 1025

	dialTimeout = 5 * time.Second
)

// DriverOption customises driver behaviour, primarily for tests.
type DriverOption func(*Driver)

// WithDialTimeout overrides the reachability probe timeout.
func WithDialTimeout(d time.Duration) DriverOption {
	return func(drv *Driver) {
		if d > 0 {
			drv.dialTimeout = d
		}
	}
}

// Driver configures the generic SMTP transport for a local Mailpit
// instance.
type Driver struct {
	opts        driver.Options
	dialTimeout time.Duration
}

// New constructs the Mailpit driver bound to the supplied store.
func New(store settings.Store, opts ...DriverOption) *Driver {
	d := &Driver{
		opts:        driver.NewOptions(Name, store),
		dialTimeout: dialTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Factory adapts New to the registry factory signature.
func Factory(store settings.Store) driver.Driver { return New(store) }

// Name returns the driver slug.
func (d *Driver) Name() string { return Name }

// Label returns the display name.
func (d *Driver) Label() string { return "Mailpit (Development)" }

// SettingsFields declares the configuration surface.
func (d *Driver) SettingsFields() []driver.SettingsField {
	return []driver.SettingsField{
		{
			Key:         "host",
			Label:       "SMTP Host",
			Type:        driver.FieldText,
			Default:     defaultHost,
			Description: "Mailpit SMTP host (usually localhost or 127.0.0.1).",
		},
		{
			Key:         "port",
			Label:       "SMTP Port",
			Type:        driver.FieldText,
			Default:     strconv.Itoa(defaultPort),
			Description: "Mailpit SMTP port (default: 1025). Web UI is typically on port 8025.",
		},
		{
			Key:         "use_tls",
			Label:       "Use TLS/STARTTLS",
			Type:        driver.FieldCheckbox,
			Description: "Enable if your Mailpit instance uses STARTTLS (usually not needed for local development).",
		},
		{
			Key:         "from_email",
			Label:       "From Email",
			Type:        driver.FieldEmail,
			Description: "Default \"From\" email address for development emails.",
		},
		{
			Key:         "from_name",
			Label:       "From Name",
			Type:        driver.FieldText,
			Description: "Default \"From\" name for development emails.",
		},
		{
			Key:         "force_from",
			Label:       "Force \"From\" Settings",
			Type:        driver.FieldCheckbox,
			Description: "Recommended for development. Ensures consistent sender information.",
		},
	}
}

// ValidateConfig checks host and port.
func (d *Driver) ValidateConfig() error {
	host := d.opts.Get("host", defaultHost)
	port := d.opts.GetInt("port", defaultPort)

	if host == "" {
		return driver.NewConfigError("missing_host", "SMTP Host is required.")
	}
	if port < 1 || port > 65535 {
		return driver.NewConfigError("invalid_port", "SMTP Port must be between 1 and 65535.")
	}
	return nil
}

// ConfigureTransport points the SMTP transport at the Mailpit instance.
// Mailpit does not require authentication.
func (d *Driver) ConfigureTransport(cfg *transport.Config) {
	cfg.Host = d.opts.Get("host", defaultHost)
	cfg.Port = d.opts.GetInt("port", defaultPort)
	cfg.Auth = false
	cfg.Encryption = transport.EncryptionNone

	if d.opts.GetBool("use_tls", false) {
		cfg.Encryption = transport.EncryptionSTARTTLS
	}

	if d.opts.GetBool("force_from", false) {
		if from := d.opts.Get("from_email", ""); message.ValidAddress(from) {
			cfg.FromEmail = from
		}
		if name := d.opts.Get("from_name", ""); name != "" {
			cfg.FromName = name
		}
	}
}

// TestConnection opens a raw TCP connection to the configured host and port
// with a short timeout. Reachability is all a development mail sink needs.
func (d *Driver) TestConnection(ctx context.Context) driver.ConnectionTestResult {
	if err := d.ValidateConfig(); err != nil {
		return driver.ConnectionTestResult{Success: false, Message: err.Error()}
	}

	host := d.opts.Get("host", defaultHost)
	port := d.opts.GetInt("port", defaultPort)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: d.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return driver.ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Cannot connect to Mailpit at %s:%d. Error: %v. Make sure Mailpit is running.", host, port, err),
		}
	}
	conn.Close()

	return driver.ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("Successfully connected to Mailpit at %s:%d. SMTP server is reachable.", host, port),
	}
}
