// Package notify emails a summary of a sync run.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/sync/errgroup"

	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
	"github.com/coalharbourgroup/PM-email-vcs/internal/reconcile"
	"github.com/coalharbourgroup/PM-email-vcs/internal/validation"
)

// Mailer dispatches an email
type Mailer interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

// Linker resolves the browse URL of a repository file
type Linker interface {
	BrowseURL(ctx context.Context, path string) (string, error)
}

// Chat sends a plain text message to a chat recipient
type Chat interface {
	SendText(ctx context.Context, to, text string) error
}

// Config describes who the summary comes from and goes to
type Config struct {
	Repository string
	FromEmail  string
	FromName   string
	Recipients []string
}

// NotifyError reports a summary the mailer refused to send
type NotifyError struct {
	Err error
}

func (e *NotifyError) Error() string {
	return "Unable to send notification: " + e.Err.Error()
}

func (e *NotifyError) Unwrap() error { return e.Err }

// Notifier renders sync summaries and sends them
type Notifier struct {
	mailer    Mailer
	linker    Linker
	cfg       Config
	md        goldmark.Markdown
	validator *validation.Validator
	log       *logger.Logger

	chat          Chat
	chatRecipient string
}

// New creates a notifier
func New(mailer Mailer, linker Linker, cfg Config, log *logger.Logger) *Notifier {
	return &Notifier{
		mailer:    mailer,
		linker:    linker,
		cfg:       cfg,
		md:        goldmark.New(),
		validator: validation.New(),
		log:       log.Component("notify"),
	}
}

// WithChat mirrors every summary to a chat recipient. Chat failures are
// logged and never fail Notify.
func (n *Notifier) WithChat(chat Chat, recipient string) *Notifier {
	n.chat = chat
	n.chatRecipient = recipient
	return n
}

// Notify emails the summary and returns the rendered HTML body
func (n *Notifier) Notify(ctx context.Context, sum reconcile.Summary) (string, error) {
	report, err := n.Render(ctx, sum)
	if err != nil {
		return "", &NotifyError{Err: err}
	}

	msg := models.Message{
		FromEmail: n.cfg.FromEmail,
		FromName:  n.cfg.FromName,
		To:        n.cfg.Recipients,
		Subject:   "EmailVCS Sync Notification for " + n.cfg.Repository,
		HTML:      report,
	}
	if err := n.validator.ValidateMessage(msg); err != nil {
		return "", &NotifyError{Err: err}
	}
	if err := n.mailer.SendMessage(ctx, msg); err != nil {
		return "", &NotifyError{Err: err}
	}
	n.log.Infof("sync notification sent to %d recipient(s)", len(msg.To))

	if n.chat != nil && n.chatRecipient != "" {
		if err := n.chat.SendText(ctx, n.chatRecipient, ChatText(n.cfg.Repository, sum)); err != nil {
			n.log.Error("Failed to send chat summary", err)
		}
	}

	return report, nil
}

// Render builds the HTML report for a summary
func (n *Notifier) Render(ctx context.Context, sum reconcile.Summary) (string, error) {
	added, err := n.linkedEntries(ctx, sum.Actions.Added)
	if err != nil {
		return "", err
	}
	modified, err := n.linkedEntries(ctx, sum.Actions.Modified)
	if err != nil {
		return "", err
	}
	removed := make([]string, len(sum.Actions.Removed))
	for i, p := range sum.Actions.Removed {
		removed[i] = escape(p)
	}
	errs := make([]string, len(sum.Errors))
	for i, e := range sum.Errors {
		errs[i] = escape(e)
	}

	var md strings.Builder
	fmt.Fprintf(&md, "The following files have been synced from your GitHub repo \"%s\" to Mandrill:\n\n", escape(n.cfg.Repository))
	writeList(&md, "Added", added)
	writeList(&md, "Modified", modified)
	writeList(&md, "Removed", removed)
	writeList(&md, "Errors", errs)

	var body bytes.Buffer
	if err := n.md.Convert([]byte(md.String()), &body); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return "<html><body>\n" + body.String() + "</body></html>", nil
}

// linkedEntries turns paths into markdown links, resolved concurrently.
// Paths whose URL cannot be resolved any more are marked as removed.
func (n *Notifier) linkedEntries(ctx context.Context, paths []string) ([]string, error) {
	entries := make([]string, len(paths))

	var g errgroup.Group
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			u, err := n.linker.BrowseURL(ctx, p)
			if err != nil {
				n.log.Debugf("no browse url for %s: %v", p, err)
				entries[i] = escape(p) + " (Removed)"
				return nil
			}
			entries[i] = fmt.Sprintf("[%s](<%s>)", escape(p), u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func writeList(md *strings.Builder, title string, entries []string) {
	fmt.Fprintf(md, "**%s:**\n\n", title)
	if len(entries) == 0 {
		md.WriteString("None\n\n")
		return
	}
	for _, e := range entries {
		md.WriteString("- " + e + "\n")
	}
	md.WriteString("\n")
}

const punctuation = "\\`*_{}[]()<>#+-.!|~&\"'"

// escape backslash-escapes markdown punctuation so text renders verbatim
func escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(punctuation, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ChatText is the plain text summary mirrored to chat
func ChatText(repo string, sum reconcile.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Templates synced from %s\n", repo)
	fmt.Fprintf(&sb, "Added: %d\nModified: %d\nRemoved: %d\n",
		len(sum.Actions.Added), len(sum.Actions.Modified), len(sum.Actions.Removed))
	if len(sum.Errors) == 0 {
		sb.WriteString("Errors: none")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Errors: %d\n", len(sum.Errors))
	for _, e := range sum.Errors {
		sb.WriteString("• " + e + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
