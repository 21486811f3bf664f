// Package transport owns the generic SMTP transport: the configuration
// object drivers mutate and the default sender used when no driver
// intercepts the send.
package transport

// Encryption selects the session security mode for the SMTP transport.
type Encryption string

const (
	// EncryptionNone sends in the clear.
	EncryptionNone Encryption = ""
	// EncryptionSTARTTLS upgrades the session when the server offers it.
	EncryptionSTARTTLS Encryption = "starttls"
	// EncryptionSSL wraps the connection in TLS before the SMTP handshake.
	EncryptionSSL Encryption = "ssl"
)

// Config is the generic SMTP transport configuration. Drivers that deliver
// over SMTP mutate it; intercepting drivers leave it untouched. A zero
// Config means "not configured" and the sender rejects it, which is the
// deliberate fallback behaviour when the active driver's configuration is
// invalid.
type Config struct {
	Host       string
	Port       int
	Auth       bool
	Username   string
	Password   string
	Encryption Encryption

	// FromEmail and FromName override the sender identity when set. They
	// are resolved by the dispatcher's force-from priority chain before the
	// sender runs.
	FromEmail string
	FromName  string
}

// Configured reports whether a driver has populated the transport.
func (c *Config) Configured() bool {
	return c != nil && c.Host != "" && c.Port > 0
}
