package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/mailroute/internal/config"
	"github.com/example/mailroute/internal/dispatch"
	"github.com/example/mailroute/internal/logger"
	"github.com/example/mailroute/internal/settings"
	"github.com/example/mailroute/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the wired components shared by every subcommand.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	store      settings.Store
	dispatcher *dispatch.Dispatcher
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}
	log := baseLogger.With().Str("service", "mailroute").Logger()

	store, err := settings.OpenFileStore(cfg.Settings.Path)
	if err != nil {
		return nil, err
	}

	// The admin fallback address comes from the environment but is read by
	// drivers through the store, so mirror it in on startup.
	if admin := cfg.Settings.AdminEmail; admin != "" && store.Get(settings.KeyAdminEmail, "") != admin {
		if err := store.Set(settings.KeyAdminEmail, admin); err != nil {
			return nil, err
		}
	}

	sender := transport.NewSMTPSender(log.With().Str("component", "smtp-transport").Logger())
	dispatcher := dispatch.New(store, sender, log.With().Str("component", "dispatcher").Logger())

	return &app{
		cfg:        cfg,
		logger:     log,
		store:      store,
		dispatcher: dispatcher,
	}, nil
}

// newRootCmd assembles the CLI. Every subcommand wires the app lazily so
// flag parsing errors do not require a working settings store.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mailroute",
		Short: "Route outgoing email through a configurable mail service driver",
		Long: `Mailroute dispatches outgoing email through one of several mail
service drivers (SendGrid, Mailpit, SMTP.com). Drivers are configured
through a persistent settings store; the active driver handles every send,
either by configuring the generic SMTP transport or by delivering through
its own API.`,
		SilenceUsage: true,
	}

	root.AddCommand(newDriversCmd())
	root.AddCommand(newTestCmd())
	root.AddCommand(newSendCmd())
	root.AddCommand(newActivateCmd())
	root.AddCommand(newSetCmd())

	return root
}
