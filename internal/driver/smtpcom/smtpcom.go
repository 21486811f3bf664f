// Package smtpcom implements the SMTP.com driver. Unlike the SMTP-family
// drivers it does not touch the generic transport: delivery happens through
// the SMTP.com v4 REST API, and the driver intercepts the send before the
// transport is configured. Any failure on the API path results in a
// pass-through so the host still gets a best-effort delivery attempt via
// the default transport.
package smtpcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/mailroute/internal/driver"
	"github.com/example/mailroute/internal/message"
	"github.com/example/mailroute/internal/settings"
	"github.com/example/mailroute/internal/transport"
)

// Name is the driver's registry slug.
const Name = "smtpcom"

const (
	defaultAPIURL = "https://api.smtp.com/v4/messages"

	sendTimeout = 30 * time.Second
	testTimeout = 10 * time.Second

	// maxErrorBody bounds how much of a provider error response is read.
	maxErrorBody = 64 * 1024
)

// DriverOption customises driver behaviour.
type DriverOption func(*Driver)

// WithLogger attaches a logger to the driver.
func WithLogger(logger zerolog.Logger) DriverOption {
	return func(d *Driver) {
		if !reflect.ValueOf(logger).IsZero() {
			d.logger = logger
		}
	}
}

// WithHTTPClient swaps the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) DriverOption {
	return func(d *Driver) {
		if client != nil {
			d.client = client
		}
	}
}

// Driver delivers mail through the SMTP.com REST API.
type Driver struct {
	opts   driver.Options
	store  settings.Store
	client *http.Client
	logger zerolog.Logger
}

// New constructs the SMTP.com driver bound to the supplied store.
func New(store settings.Store, opts ...DriverOption) *Driver {
	d := &Driver{
		opts:   driver.NewOptions(Name, store),
		store:  store,
		client: &http.Client{},
		logger: zerolog.Nop(),
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
func (d *Driver) Label() string { return "SMTP.com" }

// SettingsFields declares the configuration surface.
func (d *Driver) SettingsFields() []driver.SettingsField {
	return []driver.SettingsField{
		{
			Key:         "api_key",
			Label:       "API Key",
			Type:        driver.FieldPassword,
			Required:    true,
			Description: "Get your API key from SMTP.com account settings.",
		},
		{
			Key:         "channel",
			Label:       "Sender Name (Channel)",
			Type:        driver.FieldText,
			Required:    true,
			Description: "Get your Sender Name from SMTP.com account settings.",
		},
		{
			Key:         "from_email",
			Label:       "From Email",
			Type:        driver.FieldEmail,
			Description: "Default \"From\" email address. This should match your verified sender in SMTP.com.",
		},
		{
			Key:         "from_name",
			Label:       "From Name",
			Type:        driver.FieldText,
			Description: "Default \"From\" name for your emails.",
		},
		{
			Key:         "force_from",
			Label:       "Force \"From\" Settings",
			Type:        driver.FieldCheckbox,
			Description: "Recommended. Prevents callers from setting their own \"From\" headers which might not be verified in SMTP.com.",
		},
	}
}

// ValidateConfig checks the API key and channel are present.
func (d *Driver) ValidateConfig() error {
	if d.opts.Get("api_key", "") == "" {
		return driver.NewConfigError("missing_api_key", "SMTP.com API Key is required.")
	}
	if d.opts.Get("channel", "") == "" {
		return driver.NewConfigError("missing_channel", "SMTP.com Sender Name (Channel) is required.")
	}
	return nil
}

// ConfigureTransport is a no-op by contract: delivery happens entirely
// through InterceptSend.
func (d *Driver) ConfigureTransport(_ *transport.Config) {}

// InterceptSend attempts to deliver msg through the REST API. A true return
// means the send is fully handled and the default transport must be
// skipped. Every failure path returns false so the host's default transport
// still gets its attempt.
func (d *Driver) InterceptSend(ctx context.Context, msg *message.MailMessage) bool {
	if msg == nil {
		return false
	}

	// Only intercept when this driver is the active one; otherwise the
	// default transport owns the send.
	active := d.store.Get(settings.KeyActiveDriver, driver.DefaultDriverName)
	if active != Name {
		return false
	}

	if err := d.ValidateConfig(); err != nil {
		d.logger.Warn().Err(err).Msg("smtp.com configuration invalid; passing through")
		return false
	}

	if !hasValidRecipient(msg.To) {
		d.logger.Warn().Msg("no valid recipient for smtp.com send; passing through")
		return false
	}

	payload, diag := d.buildPayload(msg)
	if diag.DroppedHeaders > 0 || diag.DroppedAddresses > 0 {
		d.logger.Warn().
			Int("dropped_headers", diag.DroppedHeaders).
			Int("dropped_addresses", diag.DroppedAddresses).
			Int("skipped_attachments", diag.SkippedAttachments).
			Msg("lenient parsing dropped input during payload build")
	}

	// Never submit a request guaranteed to fail provider-side validation.
	if payload.Recipients == nil || len(payload.Recipients.To) == 0 {
		d.logger.Warn().Msg("smtp.com payload has no recipients; passing through")
		return false
	}

	status, body, err := d.transmit(ctx, payload, sendTimeout)
	if err != nil {
		d.logger.Warn().Err(err).Msg("smtp.com send failed; passing through")
		return false
	}
	if status != http.StatusOK {
		d.logger.Warn().
			Int("status", status).
			Str("body", truncate(string(body), 512)).
			Msg("smtp.com rejected send; passing through")
		return false
	}

	d.logger.Info().
		Int("recipients", len(payload.Recipients.To)).
		Msg("message delivered via smtp.com api")
	return true
}

// TestConnection performs a minimal real submission with the admin address
// as both sender and sole recipient.
func (d *Driver) TestConnection(ctx context.Context) driver.ConnectionTestResult {
	if err := d.ValidateConfig(); err != nil {
		return driver.ConnectionTestResult{Success: false, Message: err.Error()}
	}

	channel := d.opts.Get("channel", "")
	admin := d.store.Get(settings.KeyAdminEmail, "")

	testPayload := &payload{
		Channel:    channel,
		Subject:    "Test Connection",
		Originator: originator{From: message.AddressEntry{Address: admin}},
		Recipients: &recipients{To: []message.AddressEntry{{Address: admin}}},
		Body: bodySection{
			Parts: []bodyPart{{
				Type:    "text/plain",
				Content: "This is a test connection.",
				Charset: "UTF-8",
			}},
		},
	}

	status, body, err := d.transmit(ctx, testPayload, testTimeout)
	if err != nil {
		return driver.ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Cannot connect to SMTP.com API. Error: %v", err),
		}
	}

	if status != http.StatusOK {
		return driver.ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("SMTP.com API returned error code %d: %s", status, extractAPIError(body)),
		}
	}

	messages := []string{
		"Successfully connected to SMTP.com API.",
		fmt.Sprintf("Channel %q is configured.", channel),
	}

	if from := d.opts.Get("from_email", ""); from != "" {
		if !message.ValidAddress(from) {
			return driver.ConnectionTestResult{
				Success: false,
				Message: fmt.Sprintf("From email %q is not a valid email address.", from),
			}
		}
		messages = append(messages, fmt.Sprintf("From email %q is valid.", from))
	} else {
		messages = append(messages, "Note: From email is not configured. Make sure to set a verified sender in SMTP.com.")
	}

	messages = append(messages, "Ready to send emails via SMTP.com API.")
	return driver.ConnectionTestResult{Success: true, Message: strings.Join(messages, " ")}
}

// transmit posts the payload with bearer auth and returns the HTTP status
// and response body.
func (d *Driver) transmit(ctx context.Context, p *payload, timeout time.Duration) (int, []byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return 0, nil, fmt.Errorf("smtp.com: encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := d.opts.Get("api_url", defaultAPIURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("smtp.com: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.opts.Get("api_key", ""))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("smtp.com: post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("smtp.com: read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// extractAPIError pulls a provider-supplied error out of a JSON error body,
// trying the structured error key first, then the top level message.
func extractAPIError(body []byte) string {
	if len(body) > 0 {
		var parsed struct {
			Data struct {
				ErrorKey string `json:"error_key"`
			} `json:"data"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &parsed); err == nil {
			if parsed.Data.ErrorKey != "" {
				return parsed.Data.ErrorKey
			}
			if parsed.Message != "" {
				return parsed.Message
			}
		}
	}
	return "API request failed."
}

func hasValidRecipient(to []string) bool {
	for _, raw := range to {
		for _, token := range message.SplitRecipients(raw) {
			if message.ValidAddress(token) {
				return true
			}
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
