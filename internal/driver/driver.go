// Package driver defines the contract every mail transport driver satisfies
// and the registry that resolves the active one. Drivers are stateless
// strategy objects: all state lives in the settings store, so the registry
// hands out a fresh instance per lookup.
package driver

import (
	"context"
	"fmt"

	"github.com/example/mailroute/internal/message"
	"github.com/example/mailroute/internal/settings"
	"github.com/example/mailroute/internal/transport"
)

// FieldType enumerates the input kinds a settings field can declare.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldTextarea FieldType = "textarea"
	FieldCheckbox FieldType = "checkbox"
)

// SettingsField declares one entry of a driver's configuration surface.
// Slice order is display order. The Required flag is also consulted by
// save-time validation, not just the UI.
type SettingsField struct {
	Key         string
	Label       string
	Type        FieldType
	Required    bool
	Default     string
	Description string
}

// ConnectionTestResult is the structured outcome of a driver self-test. It
// is surfaced directly to the caller and never persisted.
type ConnectionTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ConfigError is a structured configuration failure: a machine readable
// kind identifying the offending field plus a human readable message.
// Callers branch on it explicitly rather than treating it as control flow.
type ConfigError struct {
	Kind    string
	Message string
}

// NewConfigError builds a ConfigError.
func NewConfigError(kind, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string { return e.Message }

// Driver is the transport strategy contract. Implementations must be safe
// to construct cheaply and to validate repeatedly without side effects.
type Driver interface {
	// Name returns the unique lowercase slug identifying the driver.
	Name() string
	// Label returns the display name.
	Label() string
	// SettingsFields declares the driver's configuration surface in
	// display order.
	SettingsFields() []SettingsField
	// ValidateConfig checks that required options are present and well
	// formed. It returns a *ConfigError on failure and must be free of
	// side effects.
	ValidateConfig() error
	// ConfigureTransport mutates the generic SMTP transport configuration.
	// Drivers that deliver through interception leave it untouched.
	ConfigureTransport(cfg *transport.Config)
	// TestConnection performs the driver's connectivity self-test. It must
	// complete within a bounded timeout and convert network failures into
	// a failure result rather than an error.
	TestConnection(ctx context.Context) ConnectionTestResult
}

// Interceptor is implemented by drivers that deliver through their own
// channel (typically a REST API) instead of the SMTP transport. A true
// return means the send was fully handled and the default transport must be
// skipped; false means pass through.
type Interceptor interface {
	InterceptSend(ctx context.Context, msg *message.MailMessage) bool
}

// Factory constructs a driver bound to the supplied settings store.
type Factory func(store settings.Store) Driver

// ValidateOnlyTest is the default self-test shared by drivers without an
// active reachability probe: run ValidateConfig and report its outcome.
func ValidateOnlyTest(d Driver) ConnectionTestResult {
	if err := d.ValidateConfig(); err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error()}
	}
	return ConnectionTestResult{
		Success: true,
		Message: "Configuration is valid. Ready to send emails.",
	}
}
