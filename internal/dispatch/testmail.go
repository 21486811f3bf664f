package dispatch

import (
	"fmt"
	"time"

	"github.com/example/mailroute/internal/message"
)

const testMailBody = `<html><body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2 style="color: #0073aa;">Test Email Successful!</h2>
<p>This is a test email sent via <strong>%s</strong>.</p>
<p>If you are reading this, your email configuration is working correctly!</p>
<hr style="border: none; border-top: 1px solid #ddd; margin: 20px 0;">
<p style="color: #666; font-size: 12px;">
<strong>Sent:</strong> %s<br>
<strong>Driver:</strong> %s<br>
<strong>From:</strong> %s
</p>
</body></html>`

// NewTestMessage builds the HTML test email used to verify end-to-end
// delivery through the active driver.
func NewTestMessage(to, driverLabel, fromEmail string, now time.Time) *message.MailMessage {
	return &message.MailMessage{
		To:      []string{to},
		Subject: "Test Email from Mailroute",
		Body: fmt.Sprintf(testMailBody,
			driverLabel,
			now.Format("2006-01-02 15:04:05"),
			driverLabel,
			fromEmail,
		),
		Headers: []string{"Content-Type: text/html; charset=UTF-8"},
	}
}
