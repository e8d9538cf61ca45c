// Package bot implements the message handler shared by every transport.
//
// The handler takes one inbound event and produces exactly one reply for the
// sender, or none when the sender is filtered out. Upstream failures never
// escape: they are turned into fixed apology texts so the transport always
// has something to send back.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kartavyaai/kartavyabot/internal/completion"
	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/contacts"
	"github.com/kartavyaai/kartavyabot/internal/menu"
	"github.com/kartavyaai/kartavyabot/internal/message"
	"github.com/kartavyaai/kartavyabot/internal/provider"
	"github.com/kartavyaai/kartavyabot/internal/session"
)

// Canned replies.
const (
	ReplyUnavailable      = "⚠️ Sorry, the AI service is currently unavailable. Please try again later."
	ReplyTimeout          = "⚠️ The request is taking longer than expected. Please try again with a simpler question."
	ReplyQueryFailed      = "⚠️ Sorry, something went wrong while processing your question. Please try again."
	ReplyFailure          = "⚠️ Sorry, something went wrong while processing your message. Please try again."
	ReplyVoiceUnsupported = "🎵 I can see you sent a voice message. Currently, I only process text messages. Please send your question as text."
	ReplyMediaUnsupported = "📷 I can see you sent media, but I can only process text messages at the moment."
	ReplyEmpty            = "⚠️ I didn't receive any message content. Please try again."
)

// Options configures a Handler.
type Options struct {
	// Mode is one of config.ModeMenu, config.ModeAssistant or config.ModeRelay.
	Mode string

	// Normalizer turns assistant output into the reply text.
	Normalizer completion.Normalizer

	// Contacts enables personalised greetings. May be nil.
	Contacts *contacts.Directory

	// ContactsOnly drops events from senders not in Contacts.
	ContactsOnly bool

	// Sessions keeps prior turns per sender. May be nil.
	Sessions *session.Store
}

// Handler answers inbound events.
type Handler struct {
	provider     provider.Provider
	mode         string
	normalizer   completion.Normalizer
	contacts     *contacts.Directory
	contactsOnly bool
	sessions     *session.Store
}

// New creates a Handler. The provider may be nil only in menu mode.
func New(p provider.Provider, opts Options) (*Handler, error) {
	switch opts.Mode {
	case config.ModeMenu:
	case config.ModeAssistant, config.ModeRelay:
		if p == nil {
			return nil, fmt.Errorf("bot: mode %q needs a provider", opts.Mode)
		}
	default:
		return nil, fmt.Errorf("bot: unknown mode %q", opts.Mode)
	}
	if opts.ContactsOnly && opts.Contacts == nil {
		return nil, errors.New("bot: contacts-only mode needs a contact directory")
	}
	return &Handler{
		provider:     p,
		mode:         opts.Mode,
		normalizer:   opts.Normalizer,
		contacts:     opts.Contacts,
		contactsOnly: opts.ContactsOnly,
		sessions:     opts.Sessions,
	}, nil
}

// Handle answers a single event. A nil reply means the event is ignored.
// The returned error is reserved for invalid input; handling failures are
// answered with an apology instead.
func (h *Handler) Handle(ctx context.Context, ev *message.Event) (reply *message.Reply, err error) {
	if ev == nil {
		return nil, errors.New("bot: nil event")
	}
	start := time.Now()
	logger := slog.With("message_id", ev.ID, "sender", ev.Sender)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling message", "panic", r)
			reply, err = h.reply(ev, ReplyFailure), nil
		}
	}()

	if h.contactsOnly && !h.contacts.Allowed(ev.Sender) {
		logger.Debug("ignoring message from unlisted sender")
		return nil, nil
	}

	logger.Info("message received", "type", ev.Type, "has_media", ev.HasMedia, "body_length", len(ev.Body))
	text := h.respond(ctx, ev, logger)
	logger.Info("message handled", "duration", time.Since(start), "reply_length", len(text))
	return h.reply(ev, text), nil
}

// CheckBackend probes the provider when it exposes a health check. A failure
// is logged as a warning and returned; the bot keeps serving either way.
func (h *Handler) CheckBackend(ctx context.Context) error {
	hc, ok := h.provider.(provider.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.Health(ctx); err != nil {
		slog.Warn("backend is not available, queries will fail until it recovers",
			"provider", h.provider.Name(), "error", err)
		return err
	}
	slog.Info("backend is healthy", "provider", h.provider.Name())
	return nil
}

func (h *Handler) respond(ctx context.Context, ev *message.Event, logger *slog.Logger) string {
	body := strings.TrimSpace(ev.Body)

	if h.mode == config.ModeMenu {
		return menu.Respond(body)
	}

	switch {
	case ev.IsVoice():
		return h.respondVoice(ctx, ev, logger)
	case body != "":
		return h.respondText(ctx, ev.Sender, body, logger)
	case ev.HasMedia:
		return ReplyMediaUnsupported
	default:
		return ReplyEmpty
	}
}

func (h *Handler) respondText(ctx context.Context, sender, body string, logger *slog.Logger) string {
	if contacts.IsGreetingOnly(body) {
		if name, ok := h.contacts.Name(sender); ok {
			logger.Debug("greeting known contact")
			return contacts.Greeting(name)
		}
	}

	history := h.sessions.History(sender)
	raw, err := h.provider.Complete(ctx, provider.Request{Message: body, History: history})
	if err != nil {
		logger.Error("completion failed", "provider", h.provider.Name(), "error", err)
		return apology(err)
	}

	if h.mode == config.ModeRelay {
		return raw
	}
	res := h.normalizer.Normalize(raw, history)
	h.remember(sender, "User: "+body, history, res)
	return res.Reply
}

func (h *Handler) respondVoice(ctx context.Context, ev *message.Event, logger *slog.Logger) string {
	ac, ok := h.provider.(provider.AudioCompleter)
	if !ok {
		return ReplyVoiceUnsupported
	}

	media, err := ev.FetchMedia(ctx)
	if err != nil {
		logger.Error("downloading voice note failed", "error", err)
		return ReplyFailure
	}

	history := h.sessions.History(ev.Sender)
	raw, err := ac.CompleteAudio(ctx, provider.AudioRequest{
		Audio:    media.Data,
		MimeType: media.MimeType,
		History:  history,
	})
	if err != nil {
		logger.Error("voice completion failed", "provider", h.provider.Name(), "error", err)
		return apology(err)
	}

	res := h.normalizer.Normalize(raw, history)
	h.remember(ev.Sender, "User: [voice message]", history, res)
	return res.Reply
}

// remember records the user's turn and, when the model produced one, its
// context summary.
func (h *Handler) remember(sender, turn string, history []string, res completion.Result) {
	if res.Context == strings.Join(history, completion.HistorySeparator) {
		h.sessions.Append(sender, turn)
		return
	}
	h.sessions.Append(sender, turn, "Context: "+res.Context)
}

func (h *Handler) reply(ev *message.Event, text string) *message.Reply {
	return &message.Reply{EventID: ev.ID, To: ev.Sender, Text: text}
}

func apology(err error) string {
	switch {
	case errors.Is(err, provider.ErrTimeout):
		return ReplyTimeout
	case errors.Is(err, provider.ErrUnavailable):
		return ReplyUnavailable
	default:
		return ReplyQueryFailed
	}
}
