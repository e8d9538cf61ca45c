// Package broadcast sends a personalised greeting to every contact in the
// directory.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kartavyaai/kartavyabot/internal/contacts"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = "👋 Hello {name}! This is *KartavyaAI*, your AI & web solutions partner.\n\n" +
	"Type *menu* to explore what we offer."

// Sender delivers a text message to a phone number or JID.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Options tunes a broadcast run.
type Options struct {
	// Template is the message text; "{name}" is replaced with the contact name.
	Template string

	// Interval is the pause between two sends.
	Interval time.Duration
}

// Report summarises a broadcast run.
type Report struct {
	Sent   int
	Failed []string // phones that could not be reached
}

// Render fills the template for one contact. Contacts without a name are
// addressed as "there".
func Render(template, name string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "there"
	}
	return strings.ReplaceAll(template, "{name}", name)
}

// Run sends the greeting to every contact in dir, in file order. A failed send
// is logged and recorded; the run continues. Run stops early only when ctx is
// cancelled, returning the partial report with ctx's error.
func Run(ctx context.Context, dir *contacts.Directory, sender Sender, opts Options) (Report, error) {
	var report Report
	if sender == nil {
		return report, errors.New("broadcast: sender must not be nil")
	}

	list := dir.Contacts()
	slog.Info("broadcast started", "contacts", len(list))

	for i, c := range list {
		if i > 0 && opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(opts.Interval):
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := sender.SendText(ctx, c.Phone, Render(opts.Template, c.Name)); err != nil {
			slog.Error("broadcast send failed", "phone", c.Phone, "error", err)
			report.Failed = append(report.Failed, c.Phone)
			continue
		}
		report.Sent++
		slog.Debug("broadcast sent", "phone", c.Phone)
	}

	slog.Info("broadcast finished", "sent", report.Sent, "failed", len(report.Failed))
	return report, nil
}
