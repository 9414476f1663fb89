// Package alert notifies operators when a runtime safeguard fires, such as
// a circuit breaker tripping.
package alert

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jurisgraph/jurisgraph/pkg/config"
)

// subjectPrefix tags every alert so operator inboxes can filter on it.
const subjectPrefix = "[jurisgraph]"

// Alerter sends one operational notification. Implementations must be safe
// for concurrent use; breakers alert from request goroutines.
type Alerter interface {
	Alert(subject, message string) error
}

// SMTP delivers alerts by email to the configured operator list.
type SMTP struct {
	cfg config.AlertConfig
	now func() time.Time
}

// NewSMTP creates an SMTP alerter. A disabled config turns Alert into a
// no-op rather than an error, so callers never need to branch on it.
func NewSMTP(cfg config.AlertConfig) *SMTP {
	return &SMTP{cfg: cfg, now: time.Now}
}

// Alert implements Alerter.
func (a *SMTP) Alert(subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)
	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	if err := smtp.SendMail(addr, auth, a.cfg.From, a.cfg.To, a.envelope(subject, message)); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

// envelope renders the mail with prefixed subject and a timestamped body.
func (a *SMTP) envelope(subject, message string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(a.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s %s\r\n\r\n", subjectPrefix, subject)
	fmt.Fprintf(&b, "%s\r\n\r\nraised at %s\r\n", message, a.now().UTC().Format(time.RFC3339))
	return []byte(b.String())
}

// Nop discards alerts. Used when alerting is not configured.
type Nop struct{}

// Alert implements Alerter.
func (Nop) Alert(subject, message string) error { return nil }

var (
	_ Alerter = (*SMTP)(nil)
	_ Alerter = Nop{}
)
