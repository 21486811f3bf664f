package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/mailroute/internal/message"
)

// ErrNotConfigured is returned when a send reaches the default transport
// without any driver having configured it. This is the expected outcome of
// the decline-to-configure fallback, not a programming error.
var ErrNotConfigured = errors.New("smtp transport is not configured")

// Dialer abstracts net.Dialer to simplify testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPOption configures the behaviour of the SMTP sender.
type SMTPOption func(*SMTPSender)

// WithDialer swaps the network dialer used to establish SMTP connections.
func WithDialer(d Dialer) SMTPOption {
	return func(s *SMTPSender) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithTLSConfig overrides the TLS configuration used for STARTTLS and
// implicit TLS sessions.
func WithTLSConfig(cfg *tls.Config) SMTPOption {
	return func(s *SMTPSender) {
		s.tlsConfig = cfg
	}
}

// WithClock replaces the clock used for Date headers.
func WithClock(now func() time.Time) SMTPOption {
	return func(s *SMTPSender) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHelloName customises the EHLO/HELO identity presented to the server.
func WithHelloName(name string) SMTPOption {
	return func(s *SMTPSender) {
		if strings.TrimSpace(name) != "" {
			s.helloName = strings.TrimSpace(name)
		}
	}
}

// SMTPSender is the default, last-resort delivery path. It assembles an RFC
// 5322 message from the generic mail request and speaks SMTP using whatever
// transport Config the active driver produced.
type SMTPSender struct {
	logger    zerolog.Logger
	dialer    Dialer
	tlsConfig *tls.Config
	now       func() time.Time
	helloName string
}

// NewSMTPSender constructs the default SMTP sender.
func NewSMTPSender(logger zerolog.Logger, opts ...SMTPOption) *SMTPSender {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	s := &SMTPSender{
		logger:    logger,
		dialer:    &net.Dialer{Timeout: 30 * time.Second},
		now:       time.Now,
		helloName: "localhost",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Send delivers msg using the supplied transport configuration.
func (s *SMTPSender) Send(ctx context.Context, cfg *Config, msg *message.MailMessage) error {
	if msg == nil {
		return errors.New("smtp transport: message is required")
	}
	if !cfg.Configured() {
		return ErrNotConfigured
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("smtp transport: invalid port %d", cfg.Port)
	}

	headers, dropped := message.ParseHeaderLines(msg.Headers)
	if dropped > 0 {
		s.logger.Warn().Int("dropped", dropped).Msg("malformed header lines skipped")
	}

	from := s.resolveFrom(cfg, headers)
	if from == "" {
		return errors.New("smtp transport: no sender address available")
	}

	recipients := envelopeRecipients(msg.To, headers)
	if len(recipients) == 0 {
		return errors.New("smtp transport: at least one valid recipient is required")
	}

	raw, err := s.buildMessage(cfg, msg, headers, from)
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, cfg, from, recipients, raw); err != nil {
		return err
	}

	s.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("recipients", len(recipients)).
		Msg("message delivered via smtp transport")
	return nil
}

func (s *SMTPSender) resolveFrom(cfg *Config, headers message.ParsedHeaders) string {
	if message.ValidAddress(cfg.FromEmail) {
		return cfg.FromEmail
	}
	if raw, ok := headers["From"]; ok {
		if entry, ok := message.ParseAddress(raw); ok {
			return entry.Address
		}
	}
	return ""
}

// envelopeRecipients collects the bare addresses for the SMTP envelope: the
// To list plus any Cc/Bcc headers, deduplicated.
func envelopeRecipients(to []string, headers message.ParsedHeaders) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(addr string) {
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	for _, raw := range to {
		for _, token := range message.SplitRecipients(raw) {
			if entry, ok := message.ParseAddress(token); ok {
				add(entry.Address)
			}
		}
	}
	for _, name := range []string{"Cc", "Bcc"} {
		if raw, ok := headers[name]; ok {
			entries, _ := message.ParseAddressList(raw)
			for _, entry := range entries {
				add(entry.Address)
			}
		}
	}

	return out
}

func (s *SMTPSender) buildMessage(cfg *Config, msg *message.MailMessage, parsed message.ParsedHeaders, from string) ([]byte, error) {
	headers := make(map[string]string, len(parsed)+6)
	for key, value := range parsed {
		canonical := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key))
		if canonical == "" || strings.TrimSpace(value) == "" {
			continue
		}
		headers[canonical] = sanitizeHeaderValue(value)
	}

	fromAddr := mail.Address{Name: cfg.FromName, Address: from}
	headers["From"] = fromAddr.String()
	if len(msg.To) > 0 {
		headers["To"] = strings.Join(msg.To, ", ")
	}
	delete(headers, "Bcc")

	if _, ok := headers["Date"]; !ok {
		headers["Date"] = s.now().UTC().Format(time.RFC1123Z)
	}
	if msg.Subject != "" {
		headers["Subject"] = sanitizeHeaderValue(msg.Subject)
	}
	if _, ok := headers["Message-Id"]; !ok {
		headers["Message-Id"] = fmt.Sprintf("<%s@mailroute>", uuid.NewString())
	}
	headers["Mime-Version"] = "1.0"

	bodyType := "text/plain; charset=UTF-8"
	if strings.Contains(headers["Content-Type"], "text/html") {
		bodyType = "text/html; charset=UTF-8"
	}

	var body bytes.Buffer
	if len(msg.Attachments) == 0 {
		headers["Content-Type"] = bodyType
		body.WriteString(normalizeBody(msg.Body))
	} else {
		boundary := strings.ReplaceAll(uuid.NewString(), "-", "")
		headers["Content-Type"] = fmt.Sprintf("multipart/mixed; boundary=%q", boundary)
		writeMultipartBody(&body, boundary, bodyType, msg)
	}

	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, key := range keys {
		value := headers[key]
		if value == "" {
			continue
		}
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())

	return buf.Bytes(), nil
}

// writeMultipartBody assembles a multipart/mixed body: the text part first,
// then one base64 part per readable attachment. Unreadable attachments are
// skipped so the rest of the send stays viable.
func writeMultipartBody(buf *bytes.Buffer, boundary, bodyType string, msg *message.MailMessage) {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: %s\r\n\r\n", bodyType)
	buf.WriteString(normalizeBody(msg.Body))
	buf.WriteString("\r\n")

	for _, path := range msg.Attachments {
		att, err := message.LoadAttachment(path)
		if err != nil {
			continue
		}
		fmt.Fprintf(buf, "--%s\r\n", boundary)
		fmt.Fprintf(buf, "Content-Type: %s\r\n", att.ContentType)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", att.Filename)
		buf.WriteString(message.ChunkBase64(att.Content))
	}
	fmt.Fprintf(buf, "--%s--\r\n", boundary)
}

func (s *SMTPSender) deliver(ctx context.Context, cfg *Config, from string, recipients []string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp transport: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	if cfg.Encryption == EncryptionSSL {
		conn = tls.Client(conn, s.sessionTLSConfig(cfg))
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp transport: new client: %w", err)
	}
	defer client.Close()

	if err := client.Hello(s.helloName); err != nil {
		return fmt.Errorf("smtp transport: hello: %w", err)
	}

	if cfg.Encryption == EncryptionSTARTTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.sessionTLSConfig(cfg)); err != nil {
				return fmt.Errorf("smtp transport: starttls: %w", err)
			}
		}
	}

	if cfg.Auth && cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp transport: auth: %w", err)
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp transport: mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp transport: rcpt to %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp transport: data: %w", err)
	}
	if _, err := writer.Write(raw); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp transport: data write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp transport: data close: %w", err)
	}

	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("smtp transport: quit: %w", err)
	}

	return ctx.Err()
}

func (s *SMTPSender) sessionTLSConfig(cfg *Config) *tls.Config {
	tlsCfg := s.tlsConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	clone := tlsCfg.Clone()
	if clone.ServerName == "" {
		clone.ServerName = cfg.Host
	}
	return clone
}

func normalizeBody(body string) string {
	if body == "" {
		return ""
	}
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}

func sanitizeHeaderValue(value string) string {
	clean := strings.ReplaceAll(value, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")
	return strings.TrimSpace(clean)
}
