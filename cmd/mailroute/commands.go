package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/mailroute/internal/dispatch"
	"github.com/example/mailroute/internal/driver"
	"github.com/example/mailroute/internal/message"
	"github.com/example/mailroute/internal/settings"
)

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List registered mail drivers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			active := a.store.Get(settings.KeyActiveDriver, driver.DefaultDriverName)
			for _, opt := range a.dispatcher.Registry().DriverOptions() {
				marker := " "
				if opt.Name == active {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s %s\n", marker, opt.Name, opt.Label)
			}
			return nil
		},
	}
}

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [driver]",
		Short: "Run a driver's connectivity self-test (defaults to the active driver)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			result, err := a.dispatcher.TestConnection(cmd.Context(), name)
			if err != nil {
				return err
			}

			if !result.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL: %s\n", result.Message)
				return fmt.Errorf("connection test failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", result.Message)
			return nil
		},
	}
}

func newSendCmd() *cobra.Command {
	var (
		to       string
		subject  string
		body     string
		headers  []string
		attach   []string
		html     bool
		testMail bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email through the active driver",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if testMail {
				return sendTestMail(cmd, a, to)
			}

			if html {
				headers = append(headers, "Content-Type: text/html; charset=UTF-8")
			}

			msg := &message.MailMessage{
				To:          message.SplitRecipients(to),
				Subject:     subject,
				Body:        body,
				Headers:     headers,
				Attachments: attach,
			}

			if err := a.dispatcher.Send(cmd.Context(), msg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient address(es), comma separated")
	cmd.Flags().StringVar(&subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	cmd.Flags().StringArrayVar(&headers, "header", nil, "additional header as \"Name: Value\" (repeatable)")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "attachment file path (repeatable)")
	cmd.Flags().BoolVar(&html, "html", false, "send the body as text/html")
	cmd.Flags().BoolVar(&testMail, "test", false, "send the built-in test email after a connectivity pre-check")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// sendTestMail mirrors the admin test-email flow: verify connectivity
// first, then dispatch the built-in HTML test message.
func sendTestMail(cmd *cobra.Command, a *app, to string) error {
	drv := a.dispatcher.Registry().ActiveDriver()
	if drv == nil {
		return dispatch.ErrNoActiveDriver
	}

	result, err := a.dispatcher.TestConnection(cmd.Context(), "")
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("configuration issue, check your settings before sending a test email: %s", result.Message)
	}

	if !message.ValidAddress(to) {
		return fmt.Errorf("invalid test recipient address %q", to)
	}

	from := a.store.Get(settings.KeyFromEmail, a.store.Get(settings.KeyAdminEmail, ""))
	msg := dispatch.NewTestMessage(to, drv.Label(), from, time.Now())

	if err := a.dispatcher.Send(cmd.Context(), msg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "test email sent via %s\n", drv.Label())
	return nil
}

func newActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <driver>",
		Short: "Select the active mail driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			name := args[0]
			drv := a.dispatcher.Registry().GetDriver(name)
			if drv == nil {
				return fmt.Errorf("%w: %s", dispatch.ErrUnknownDriver, name)
			}

			// Required-field validation against the stored options, the
			// same check the settings save path performs.
			values := make(map[string]string)
			for _, field := range drv.SettingsFields() {
				values[field.Key] = a.store.Get(settings.DriverKey(name, field.Key), field.Default)
			}
			if err := dispatch.ValidateRequired(drv, values); err != nil {
				return err
			}

			if err := a.store.Set(settings.KeyActiveDriver, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active driver set to %s\n", name)
			return nil
		},
	}
}

func newSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <driver> <key> <value>",
		Short: "Write a driver option (or a global option with --global)",
		Args: func(cmd *cobra.Command, args []string) error {
			if global {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if global {
				key, value := args[0], args[1]
				return a.store.Set(settings.GlobalKey(key), value)
			}

			name, key, value := args[0], args[1], args[2]
			if a.dispatcher.Registry().GetDriver(name) == nil {
				return fmt.Errorf("%w: %s", dispatch.ErrUnknownDriver, name)
			}
			return a.store.Set(settings.DriverKey(name, key), value)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write a global option (from_email, from_name, force_from, active_driver)")

	return cmd
}
