// Package dispatch is the orchestrator: it resolves the active driver,
// delegates to an intercepting driver when one claims the send, and
// otherwise configures and runs the default SMTP transport with the
// force-from priority chain applied.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/mailroute/internal/driver"
	"github.com/example/mailroute/internal/driver/mailpit"
	"github.com/example/mailroute/internal/driver/sendgrid"
	"github.com/example/mailroute/internal/driver/smtpcom"
	"github.com/example/mailroute/internal/message"
	"github.com/example/mailroute/internal/settings"
	"github.com/example/mailroute/internal/transport"
)

// ErrNoActiveDriver is returned when no driver resolves for the stored
// active-driver selection.
var ErrNoActiveDriver = errors.New("no driver configured")

// ErrUnknownDriver is returned by TestConnection for unregistered names.
var ErrUnknownDriver = errors.New("unknown driver")

// Sender is the default transport delivery path consumed by the
// dispatcher. *transport.SMTPSender satisfies it.
type Sender interface {
	Send(ctx context.Context, cfg *transport.Config, msg *message.MailMessage) error
}

// RegisterFunc is the extension point collaborators use to add drivers
// during the startup phase, after the core drivers are registered and
// before the active driver is first resolved.
type RegisterFunc func(*driver.Registry)

// Dispatcher routes outgoing mail through the active driver.
type Dispatcher struct {
	registry *driver.Registry
	store    settings.Store
	sender   Sender
	logger   zerolog.Logger
}

// New builds a dispatcher with the core drivers registered, then runs the
// supplied extension hooks.
func New(store settings.Store, sender Sender, logger zerolog.Logger, extensions ...RegisterFunc) *Dispatcher {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	registry := driver.NewRegistry(store, logger.With().Str("component", "driver-registry").Logger())

	smtpcomLogger := logger.With().Str("component", "smtpcom-driver").Logger()
	registry.Register(sendgrid.Name, sendgrid.Factory)
	registry.Register(mailpit.Name, mailpit.Factory)
	registry.Register(smtpcom.Name, func(s settings.Store) driver.Driver {
		return smtpcom.New(s, smtpcom.WithLogger(smtpcomLogger))
	})

	for _, ext := range extensions {
		if ext != nil {
			ext(registry)
		}
	}

	return &Dispatcher{
		registry: registry,
		store:    store,
		sender:   sender,
		logger:   logger,
	}
}

// Registry exposes the driver registry for enumeration and lookups.
func (d *Dispatcher) Registry() *driver.Registry { return d.registry }

// Send routes one mail message through the active driver. Interception
// fully owns the send when the active driver claims it; otherwise the
// driver configures the generic transport and the default sender delivers.
// An active driver with invalid configuration does not configure the
// transport, so the send proceeds against an unconfigured transport and
// fails the way the host's own fallback would.
func (d *Dispatcher) Send(ctx context.Context, msg *message.MailMessage) error {
	drv := d.registry.ActiveDriver()
	if drv == nil {
		return ErrNoActiveDriver
	}

	log := d.logger.With().Str("driver", drv.Name()).Logger()

	if interceptor, ok := drv.(driver.Interceptor); ok {
		if interceptor.InterceptSend(ctx, msg) {
			log.Debug().Msg("send handled by intercepting driver")
			return nil
		}
		log.Warn().Msg("intercepting driver passed through; using default transport")
	}

	cfg := &transport.Config{}
	if err := drv.ValidateConfig(); err != nil {
		log.Warn().Err(err).Msg("driver configuration invalid; transport left unconfigured")
	} else {
		drv.ConfigureTransport(cfg)
	}

	d.applyGlobalFrom(cfg)

	return d.sender.Send(ctx, cfg, msg)
}

// applyGlobalFrom applies the host-wide forced sender identity. The chain
// is: global force-from beats a driver's own force-from (already applied in
// ConfigureTransport), which beats whatever the request supplied.
func (d *Dispatcher) applyGlobalFrom(cfg *transport.Config) {
	if !d.store.GetBool(settings.KeyForceFrom, false) {
		return
	}
	if from := d.store.Get(settings.KeyFromEmail, ""); message.ValidAddress(from) {
		cfg.FromEmail = from
	}
	if name := d.store.Get(settings.KeyFromName, ""); name != "" {
		cfg.FromName = name
	}
}

// TestConnection runs the named driver's connectivity self-test. An empty
// name tests the active driver.
func (d *Dispatcher) TestConnection(ctx context.Context, name string) (driver.ConnectionTestResult, error) {
	var drv driver.Driver
	if name == "" {
		drv = d.registry.ActiveDriver()
		if drv == nil {
			return driver.ConnectionTestResult{}, ErrNoActiveDriver
		}
	} else {
		drv = d.registry.GetDriver(name)
		if drv == nil {
			return driver.ConnectionTestResult{}, fmt.Errorf("%w: %s", ErrUnknownDriver, name)
		}
	}

	result := drv.TestConnection(ctx)
	d.logger.Info().
		Str("driver", drv.Name()).
		Bool("success", result.Success).
		Str("message", result.Message).
		Msg("connection test completed")
	return result, nil
}

// ValidateRequired checks the supplied option values against a driver's
// required settings fields, the way the save path does before persisting.
func ValidateRequired(drv driver.Driver, values map[string]string) error {
	for _, field := range drv.SettingsFields() {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(values[field.Key]) == "" {
			return driver.NewConfigError("required_field", "%s is required for %s.", field.Label, drv.Label())
		}
	}
	return nil
}
