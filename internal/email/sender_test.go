package email

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender_Defaults(t *testing.T) {
	s := NewSMTPSender("", "")
	assert.Equal(t, "localhost:1025", s.Addr)
	assert.Equal(t, "no-reply@moviefinder.local", s.From)
}

func TestStdoutSender_Send(t *testing.T) {
	var buf bytes.Buffer
	s := StdoutSender{Log: zerolog.New(&buf)}
	require.NoError(t, s.Send("user@example.com", "Test subject", "<p>Test</p>"))
	assert.Contains(t, buf.String(), `"to":"user@example.com"`)
	assert.Contains(t, buf.String(), "Test subject")
}

func TestSMTPSender_Send_EmptyRecipient(t *testing.T) {
	s := NewSMTPSender("localhost:1025", "from@example.com")
	assert.Error(t, s.Send("", "subj", "body"))
}

func TestSMTPSender_Send_BadAddr(t *testing.T) {
	s := NewSMTPSender("no-port", "from@example.com")
	assert.ErrorContains(t, s.Send("to@example.com", "subj", "body"), "smtp addr")
}

func TestTemplatesEscape(t *testing.T) {
	html, err := ContactHTML("Eve", "eve@example.com", "<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")

	html, err = PasswordResetHTML("http://localhost:8080/resetPassword?token=abc", "1 hour")
	require.NoError(t, err)
	assert.Contains(t, html, "token=abc")
}

// Sends through MailHog when it is running locally and cleans up after.
func TestSMTPSender_MailHog_SendAndCleanup(t *testing.T) {
	client := &http.Client{Timeout: 2 * time.Second}
	_ = doMailHogDelete(client)

	sender := NewSMTPSender("localhost:1025", "test-from@example.com")
	sender.Timeout = 2 * time.Second
	if err := sender.Send("recipient@example.com", "Test MailHog", "<p>Hello MailHog</p>"); err != nil {
		t.Skipf("MailHog SMTP not available or send failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	resp, err := client.Get("http://localhost:8025/api/v2/messages")
	if err != nil {
		t.Skipf("MailHog HTTP API not available: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("MailHog API returned non-200: %d", resp.StatusCode)
	}

	var payload struct {
		Total int `json:"total"`
	}
	b, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(b, &payload)
	assert.GreaterOrEqual(t, payload.Total, 1)

	require.NoError(t, doMailHogDelete(client))
}

func doMailHogDelete(client *http.Client) error {
	req, _ := http.NewRequest(http.MethodDelete, "http://localhost:8025/api/v1/messages", nil)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
