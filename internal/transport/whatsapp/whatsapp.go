// Package whatsapp implements the WhatsApp transport for kartavyabot.
//
// It links to a WhatsApp account as a companion device through whatsmeow.
// The device session lives in a local sqlite store; on first start a QR code
// is printed to the terminal and must be scanned from the phone (Linked
// devices). Every direct message is turned into a message.Event, handed to
// the bot handler, and the reply is sent back to the same chat.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/transport"
)

// Transport implements transport.Transport over a linked WhatsApp device.
type Transport struct {
	cfg   config.WhatsAppConfig
	qrOut io.Writer

	mu        sync.Mutex
	container *sqlstore.Container
	client    *whatsmeow.Client
	handler   transport.Handler
	ctx       context.Context

	connected atomic.Bool
	inflight  sync.WaitGroup
}

// New creates a WhatsApp transport. Nothing is opened until Connect or Listen.
func New(cfg config.WhatsAppConfig) *Transport {
	return &Transport{cfg: cfg, qrOut: os.Stdout}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "whatsapp" }

// Connected reports whether the WhatsApp session is currently connected.
func (t *Transport) Connected() bool { return t.connected.Load() }

// Connect opens the device store and connects, pairing through a terminal QR
// code when the store holds no session yet. It returns once the session is
// established. Calling it again is a no-op.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return nil
	}

	store.SetOSInfo("KartavyaBot", [3]uint32{1, 0, 0})

	container, err := sqlstore.New(ctx, "sqlite3", t.cfg.StoreDSN, newLogger("database", t.cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("whatsapp: opening device store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return fmt.Errorf("whatsapp: loading device: %w", err)
	}

	client := whatsmeow.NewClient(device, newLogger("client", t.cfg.LogLevel))
	client.EnableAutoReconnect = true
	client.AddEventHandler(t.onEvent)

	if client.Store.ID == nil {
		if err := t.pair(ctx, client); err != nil {
			_ = container.Close()
			return err
		}
	} else if err := client.Connect(); err != nil {
		_ = container.Close()
		return fmt.Errorf("whatsapp: connecting: %w", err)
	}

	t.container = container
	t.client = client
	return nil
}

// pair runs the QR login flow for a fresh device.
func (t *Transport) pair(ctx context.Context, client *whatsmeow.Client) error {
	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp: requesting qr channel: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connecting: %w", err)
	}

	for evt := range qrChan {
		switch evt.Event {
		case whatsmeow.QRChannelEventCode:
			slog.Info("scan this QR code with WhatsApp (Linked devices)")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, t.qrOut)
		case whatsmeow.QRChannelSuccess.Event:
			slog.Info("whatsapp device paired")
			return nil
		case whatsmeow.QRChannelTimeout.Event:
			client.Disconnect()
			return errors.New("whatsapp: qr code pairing timed out")
		case whatsmeow.QRChannelEventError:
			client.Disconnect()
			return fmt.Errorf("whatsapp: pairing failed: %w", evt.Error)
		default:
			slog.Info("whatsapp pairing event", "event", evt.Event)
		}
	}
	if ctx.Err() != nil {
		client.Disconnect()
		return ctx.Err()
	}
	return nil
}

// Listen connects if needed and answers direct messages until ctx is done.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.mu.Lock()
	t.handler = handler
	t.ctx = ctx
	t.mu.Unlock()

	if err := t.Connect(ctx); err != nil {
		return err
	}
	slog.Info("whatsapp transport listening")

	<-ctx.Done()
	slog.Info("whatsapp transport shutting down")
	return nil
}

// WaitConnected blocks until the session is connected or ctx is done.
func (t *Transport) WaitConnected(ctx context.Context) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for !t.connected.Load() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("whatsapp: waiting for connection: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// SendText sends a plain text message. to is a JID or a phone number.
func (t *Transport) SendText(ctx context.Context, to, text string) error {
	jid, ok := recipient(to)
	if !ok {
		return fmt.Errorf("whatsapp: invalid recipient %q", to)
	}
	return t.send(ctx, jid, text)
}

func (t *Transport) send(ctx context.Context, to types.JID, text string) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return errors.New("whatsapp: not connected")
	}

	_, err := client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(truncate(text, t.cfg.MaxReplyChars)),
	})
	if err != nil {
		return fmt.Errorf("whatsapp: sending to %s: %w", to, err)
	}
	return nil
}

func (t *Transport) onEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message:
		t.inflight.Add(1)
		go func() {
			defer t.inflight.Done()
			t.handleMessage(v)
		}()
	case *events.Connected:
		t.connected.Store(true)
		slog.Info("whatsapp connected")
	case *events.Disconnected:
		t.connected.Store(false)
		slog.Warn("whatsapp disconnected")
	case *events.LoggedOut:
		t.connected.Store(false)
		slog.Error("whatsapp session logged out, delete the device store and pair again", "reason", v.Reason)
	case *events.StreamReplaced:
		t.connected.Store(false)
		slog.Error("whatsapp session replaced by another connection")
	}
}

func (t *Transport) handleMessage(evt *events.Message) {
	if ignored(evt.Info) {
		return
	}

	t.mu.Lock()
	handler, ctx, client := t.handler, t.ctx, t.client
	t.mu.Unlock()
	if handler == nil || client == nil {
		return
	}

	ev := toEvent(evt.Info, evt.Message, client.DownloadAny)
	reply, err := handler(ctx, ev)
	if err != nil {
		slog.Error("handling whatsapp message failed", "message_id", ev.ID, "error", err)
		return
	}
	if reply == nil {
		return
	}
	if err := t.send(ctx, evt.Info.Chat, reply.Text); err != nil {
		slog.Error("whatsapp reply failed", "message_id", ev.ID, "error", err)
	}
}

// Close disconnects, waits for in-flight replies and closes the store.
func (t *Transport) Close() error {
	t.mu.Lock()
	client, container := t.client, t.container
	t.client, t.container = nil, nil
	t.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
	t.connected.Store(false)
	t.inflight.Wait()

	if container != nil {
		return container.Close()
	}
	return nil
}
