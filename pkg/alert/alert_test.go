package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisgraph/jurisgraph/pkg/config"
)

func TestSMTPDisabledIsNoOp(t *testing.T) {
	// No host configured: Alert must return nil without dialing anything.
	a := NewSMTP(config.AlertConfig{Enabled: false})
	assert.NoError(t, a.Alert("Circuit breaker tripped", "embedding client open"))
}

func TestEnvelopeFormat(t *testing.T) {
	a := NewSMTP(config.AlertConfig{
		Enabled: true,
		From:    "jurisgraph@example.org",
		To:      []string{"ops@example.org", "oncall@example.org"},
	})
	a.now = func() time.Time {
		return time.Date(2026, 8, 23, 12, 30, 0, 0, time.UTC)
	}

	msg := string(a.envelope("Circuit breaker tripped", "embedding client open after 3 failures"))

	require.Contains(t, msg, "To: ops@example.org, oncall@example.org\r\n")
	require.Contains(t, msg, "Subject: [jurisgraph] Circuit breaker tripped\r\n")
	assert.Contains(t, msg, "embedding client open after 3 failures\r\n")
	assert.Contains(t, msg, "raised at 2026-08-23T12:30:00Z")
}

func TestNopAlerter(t *testing.T) {
	assert.NoError(t, Nop{}.Alert("subject", "message"))
}
