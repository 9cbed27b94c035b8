package notifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/eventgraph/internal/config"
	"github.com/ibeckermayer/eventgraph/internal/notifier"
	"github.com/ibeckermayer/eventgraph/internal/report"
)

type fakeSender struct {
	to, subject, html, plain string
}

func (f *fakeSender) Send(to, subject, htmlBody, plainBody string) error {
	f.to, f.subject, f.html, f.plain = to, subject, htmlBody, plainBody
	return nil
}

func TestSendReport(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	n := notifier.New(s, "ops@example.com")

	require.NoError(t, n.SendReport(&report.Report{Title: "#CometLanding run summary", HTMLBody: "<p>hi</p>", PlainBody: "hi"}))
	assert.Equal(t, "ops@example.com", s.to)
	assert.Equal(t, "#CometLanding run summary", s.subject)
	assert.Equal(t, "<p>hi</p>", s.html)
	assert.Equal(t, "hi", s.plain)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	_, err := notifier.NewFromConfig(config.NotifyConfig{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 25})
	assert.NoError(t, err)

	_, err = notifier.NewFromConfig(config.NotifyConfig{Provider: "pigeon"})
	assert.ErrorContains(t, err, "pigeon")
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	msg := string(notifier.BuildMessage("eg@example.com", "ops@example.com", "subject", "<b>html</b>", "plain"))

	assert.Contains(t, msg, "To: ops@example.com\r\n")
	assert.Contains(t, msg, "Content-Type: multipart/alternative; boundary=\"eventgraph-report\"\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"utf-8\"\r\n\r\nplain\r\n")
	assert.Contains(t, msg, "<b>html</b>")
	assert.True(t, len(msg) > 0 && msg[len(msg)-len("--eventgraph-report--\r\n"):] == "--eventgraph-report--\r\n")
}
