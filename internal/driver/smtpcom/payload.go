package smtpcom

import (
	"strings"

	"github.com/example/mailroute/internal/message"
	"github.com/example/mailroute/internal/settings"
)

// reservedHeaders are carried in dedicated payload sections and must not be
// duplicated under custom_headers.
var reservedHeaders = map[string]struct{}{
	"From":         {},
	"To":           {},
	"Cc":           {},
	"Bcc":          {},
	"Subject":      {},
	"Reply-To":     {},
	"Content-Type": {},
}

// payload is the SMTP.com v4 message document.
type payload struct {
	Channel       string            `json:"channel"`
	Subject       string            `json:"subject"`
	Originator    originator        `json:"originator"`
	Recipients    *recipients       `json:"recipients,omitempty"`
	Body          bodySection       `json:"body"`
	CustomHeaders map[string]string `json:"custom_headers,omitempty"`
}

type originator struct {
	From    message.AddressEntry  `json:"from"`
	ReplyTo *message.AddressEntry `json:"reply_to,omitempty"`
}

type recipients struct {
	To  []message.AddressEntry `json:"to,omitempty"`
	Cc  []message.AddressEntry `json:"cc,omitempty"`
	Bcc []message.AddressEntry `json:"bcc,omitempty"`
}

type bodySection struct {
	Parts       []bodyPart   `json:"parts"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type bodyPart struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Charset string `json:"charset"`
}

type attachment struct {
	Content     string `json:"content"`
	Type        string `json:"type"`
	Encoding    string `json:"encoding"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition"`
	CID         string `json:"cid"`
}

// buildDiagnostics counts the input the lenient parsing dropped so the loss
// is observable in logs and tests.
type buildDiagnostics struct {
	DroppedHeaders     int
	DroppedAddresses   int
	SkippedAttachments int
}

// buildPayload converts the generic mail request into the provider
// document.
func (d *Driver) buildPayload(msg *message.MailMessage) (*payload, buildDiagnostics) {
	var diag buildDiagnostics

	parsed, droppedHeaders := message.ParseHeaderLines(msg.Headers)
	diag.DroppedHeaders = droppedHeaders

	p := &payload{
		Channel: d.opts.Get("channel", ""),
		Subject: msg.Subject,
	}

	p.Originator = d.buildOriginator(parsed)

	rcpts := &recipients{}
	for _, raw := range msg.To {
		for _, token := range message.SplitRecipients(raw) {
			if message.ValidAddress(token) {
				rcpts.To = append(rcpts.To, message.AddressEntry{Address: token})
			} else {
				diag.DroppedAddresses++
			}
		}
	}
	if cc, ok := parsed["Cc"]; ok {
		entries, dropped := message.ParseAddressList(cc)
		rcpts.Cc = entries
		diag.DroppedAddresses += dropped
	}
	if bcc, ok := parsed["Bcc"]; ok {
		entries, dropped := message.ParseAddressList(bcc)
		rcpts.Bcc = entries
		diag.DroppedAddresses += dropped
	}
	if len(rcpts.To) > 0 || len(rcpts.Cc) > 0 || len(rcpts.Bcc) > 0 {
		p.Recipients = rcpts
	}

	partType := "text/plain"
	if strings.Contains(parsed["Content-Type"], "text/html") {
		partType = "text/html"
	}
	p.Body.Parts = []bodyPart{{
		Type:    partType,
		Content: msg.Body,
		Charset: "UTF-8",
	}}

	for _, path := range msg.Attachments {
		att, err := message.LoadAttachment(path)
		if err != nil {
			diag.SkippedAttachments++
			continue
		}
		p.Body.Attachments = append(p.Body.Attachments, attachment{
			Content:     message.ChunkBase64(att.Content),
			Type:        att.ContentType,
			Encoding:    "base64",
			Filename:    att.Filename,
			Disposition: "attachment",
		})
	}

	custom := make(map[string]string)
	for name, value := range parsed {
		if _, reserved := reservedHeaders[name]; reserved {
			continue
		}
		custom[name] = value
	}
	if len(custom) > 0 {
		p.CustomHeaders = custom
	}

	return p, diag
}

// buildOriginator resolves the sender identity: the driver's from_email
// option first, then a From header on the request, then the host-wide admin
// fallback address. The display name is only ever taken from the from_name
// option.
func (d *Driver) buildOriginator(parsed message.ParsedHeaders) originator {
	fromEmail := d.opts.Get("from_email", "")
	if fromEmail == "" {
		if raw, ok := parsed["From"]; ok {
			if entry, ok := message.ParseAddress(raw); ok {
				fromEmail = entry.Address
			}
		}
	}
	if fromEmail == "" {
		fromEmail = d.store.Get(settings.KeyAdminEmail, "")
	}

	o := originator{From: message.AddressEntry{Address: fromEmail}}
	if name := d.opts.Get("from_name", ""); name != "" {
		o.From.Name = name
	}

	if raw, ok := parsed["Reply-To"]; ok {
		if entry, ok := message.ParseAddress(raw); ok {
			o.ReplyTo = &entry
		}
	}

	return o
}
