package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
	"github.com/coalharbourgroup/PM-email-vcs/internal/reconcile"
)

type fakeMailer struct {
	sent []models.Message
	err  error
}

func (m *fakeMailer) SendMessage(_ context.Context, msg models.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeLinker struct {
	urls map[string]string
}

func (l *fakeLinker) BrowseURL(_ context.Context, path string) (string, error) {
	u, ok := l.urls[path]
	if !ok {
		return "", fmt.Errorf("%s: not found", path)
	}
	return u, nil
}

type fakeChat struct {
	to, text string
	err      error
}

func (c *fakeChat) SendText(_ context.Context, to, text string) error {
	c.to, c.text = to, text
	return c.err
}

func testConfig() Config {
	return Config{
		Repository: "PM-email-templates",
		FromEmail:  "sync@example.com",
		FromName:   "Sync",
		Recipients: []string{"ops@example.com", "dev@example.com"},
	}
}

func TestNotifySendsReport(t *testing.T) {
	mailer := &fakeMailer{}
	linker := &fakeLinker{urls: map[string]string{
		"test/template.md": "https://github.com/coalharbourgroup/PM-email-templates/blob/master/test/template.md",
	}}
	n := New(mailer, linker, testConfig(), logger.Nop())

	sum := reconcile.Summary{
		Actions: reconcile.Actions{
			Added:    []string{},
			Modified: []string{"test/template.md", "test/since_deleted.md"},
			Removed:  []string{"test/old.md"},
		},
		Errors: []string{},
	}

	html, err := n.Notify(context.Background(), sum)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, "EmailVCS Sync Notification for PM-email-templates", msg.Subject)
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, msg.To)
	assert.Equal(t, "sync@example.com", msg.FromEmail)
	assert.Equal(t, html, msg.HTML)

	assert.Contains(t, html, "<strong>Added:</strong>")
	assert.Contains(t, html, `<a href="https://github.com/coalharbourgroup/PM-email-templates/blob/master/test/template.md">test/template.md</a>`)
	assert.Contains(t, html, "test/since_deleted.md (Removed)")
	assert.Contains(t, html, "<li>test/old.md</li>")
	assert.NotContains(t, html, `test/old.md</a>`)
	assert.Contains(t, html, "<strong>Errors:</strong></p>\n<p>None</p>")
}

func TestRenderListsErrorsVerbatim(t *testing.T) {
	n := New(&fakeMailer{}, &fakeLinker{}, testConfig(), logger.Nop())

	html, err := n.Render(context.Background(), reconcile.Summary{
		Errors: []string{
			"Unable to sync file: promo-spring_sale",
			"test-template.md causes duplication once converted to test-template",
		},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<li>Unable to sync file: promo-spring_sale</li>")
	assert.Contains(t, html, "<li>test-template.md causes duplication once converted to test-template</li>")
	assert.NotContains(t, html, "<em>")
}

func TestNotifyMailerFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("Invalid_Key")}
	n := New(mailer, &fakeLinker{}, testConfig(), logger.Nop())

	_, err := n.Notify(context.Background(), reconcile.Summary{})

	var nerr *NotifyError
	require.ErrorAs(t, err, &nerr)
	assert.EqualError(t, nerr.Err, "Invalid_Key")
}

func TestNotifyRejectsMissingRecipients(t *testing.T) {
	cfg := testConfig()
	cfg.Recipients = nil
	mailer := &fakeMailer{}

	_, err := New(mailer, &fakeLinker{}, cfg, logger.Nop()).Notify(context.Background(), reconcile.Summary{})

	var nerr *NotifyError
	require.ErrorAs(t, err, &nerr)
	assert.Empty(t, mailer.sent)
}

func TestNotifyMirrorsToChat(t *testing.T) {
	chat := &fakeChat{err: errors.New("not connected")}
	n := New(&fakeMailer{}, &fakeLinker{}, testConfig(), logger.Nop()).WithChat(chat, "123@g.us")

	_, err := n.Notify(context.Background(), reconcile.Summary{
		Actions: reconcile.Actions{Removed: []string{"a.md"}},
		Errors:  []string{"Unable to remove file: b"},
	})
	require.NoError(t, err)

	assert.Equal(t, "123@g.us", chat.to)
	assert.Contains(t, chat.text, "Removed: 1")
	assert.Contains(t, chat.text, "• Unable to remove file: b")
}

func TestChatTextWithoutErrors(t *testing.T) {
	text := ChatText("repo", reconcile.Summary{Actions: reconcile.Actions{Added: []string{"a.md", "b.md"}}})
	assert.Equal(t, "Templates synced from repo\nAdded: 2\nModified: 0\nRemoved: 0\nErrors: none", text)
}
