// Package transport defines the interface for pluggable message transports.
//
// Each transport (WhatsApp, HTTP, gRPC) implements this interface. The bot
// handler doesn't care how events arrive; it only works with the Transport
// contract.
package transport

import (
	"context"

	"github.com/kartavyaai/kartavyabot/internal/message"
)

// Handler processes an inbound event and returns the reply for its sender.
// A nil reply means nothing is sent back.
type Handler func(ctx context.Context, ev *message.Event) (*message.Reply, error)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "whatsapp", "http", "grpc").
	Name() string

	// Listen starts accepting inbound events and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
