// Package sendgrid implements the SendGrid driver. SendGrid is reached over
// its SMTP relay, so this driver only configures the generic transport; the
// relay host, port and username are fixed by the provider.
package sendgrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/mailroute/internal/driver"
	"github.com/example/mailroute/internal/message"
	"github.com/example/mailroute/internal/settings"
	"github.com/example/mailroute/internal/transport"
)

// Name is the driver's registry slug.
const Name = "sendgrid"

const (
	relayHost = "smtp.sendgrid.net"
	relayPort = 587
	// SendGrid mandates this exact username; the API key is the password.
	relayUser = "apikey"

	minKeyLength = 20
)

// Driver configures the generic SMTP transport for SendGrid's relay.
type Driver struct {
	opts driver.Options
}

// New constructs the SendGrid driver bound to the supplied store.
func New(store settings.Store) *Driver {
	return &Driver{opts: driver.NewOptions(Name, store)}
}

// Factory adapts New to the registry factory signature.
func Factory(store settings.Store) driver.Driver { return New(store) }

// Name returns the driver slug.
func (d *Driver) Name() string { return Name }

// Label returns the display name.
func (d *Driver) Label() string { return "SendGrid" }

// SettingsFields declares the configuration surface.
func (d *Driver) SettingsFields() []driver.SettingsField {
	return []driver.SettingsField{
		{
			Key:         "api_key",
			Label:       "SendGrid API Key",
			Type:        driver.FieldPassword,
			Required:    true,
			Description: "Create a \"Full Access\" or \"Mail Send\" API Key in your SendGrid dashboard.",
		},
		{
			Key:         "from_email",
			Label:       "From Email",
			Type:        driver.FieldEmail,
			Description: "This must match a verified sender in SendGrid.",
		},
		{
			Key:   "from_name",
			Label: "From Name",
			Type:  driver.FieldText,
		},
		{
			Key:         "force_from",
			Label:       "Force \"From\" Settings",
			Type:        driver.FieldCheckbox,
			Description: "Recommended. Prevents callers from setting their own \"From\" headers which might get blocked by SendGrid if not verified.",
		},
	}
}

// ValidateConfig checks the API key is present and looks like a SendGrid
// key. Keys typically start with "SG." and are well over 20 characters.
func (d *Driver) ValidateConfig() error {
	apiKey := d.opts.Get("api_key", "")

	if apiKey == "" {
		return driver.NewConfigError("missing_api_key", "SendGrid API Key is required.")
	}
	if len(apiKey) < minKeyLength || (!strings.HasPrefix(apiKey, "SG.") && !strings.HasPrefix(apiKey, "SGA")) {
		return driver.NewConfigError("invalid_api_key_format", "SendGrid API Key format appears to be invalid. Keys typically start with \"SG.\"")
	}
	return nil
}

// ConfigureTransport points the SMTP transport at SendGrid's relay with
// the API key as the password.
func (d *Driver) ConfigureTransport(cfg *transport.Config) {
	apiKey := d.opts.Get("api_key", "")
	if apiKey == "" {
		return
	}

	cfg.Host = relayHost
	cfg.Port = relayPort
	cfg.Auth = true
	cfg.Username = relayUser
	cfg.Password = apiKey
	cfg.Encryption = transport.EncryptionSTARTTLS

	if d.opts.GetBool("force_from", false) {
		if from := d.opts.Get("from_email", ""); message.ValidAddress(from) {
			cfg.FromEmail = from
		}
		if name := d.opts.Get("from_name", ""); name != "" {
			cfg.FromName = name
		}
	}
}

// TestConnection validates the configuration and reports sender identity
// diagnostics. No network probe: the relay only accepts authenticated
// sessions, so reachability alone would not prove anything useful.
func (d *Driver) TestConnection(_ context.Context) driver.ConnectionTestResult {
	if err := d.ValidateConfig(); err != nil {
		return driver.ConnectionTestResult{Success: false, Message: err.Error()}
	}

	messages := []string{"API Key is configured and format is valid."}

	if from := d.opts.Get("from_email", ""); from != "" {
		if !message.ValidAddress(from) {
			return driver.ConnectionTestResult{
				Success: false,
				Message: fmt.Sprintf("From email %q is not a valid email address.", from),
			}
		}
		messages = append(messages, fmt.Sprintf("From email %q is valid.", from))
	} else {
		messages = append(messages, "Note: From email is not configured. Make sure to set a verified sender in SendGrid.")
	}

	messages = append(messages, "Ready to send emails via SendGrid SMTP.")
	return driver.ConnectionTestResult{Success: true, Message: strings.Join(messages, " ")}
}
