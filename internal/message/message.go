// Package message defines the core data types flowing through the bot pipeline.
package message

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MediaType is the media tag attached to an inbound event.
type MediaType string

const (
	// MediaTypeChat is a plain text message.
	MediaTypeChat MediaType = "chat"

	// MediaTypeAudio is a forwarded or attached audio file.
	MediaTypeAudio MediaType = "audio"

	// MediaTypePTT is a push-to-talk voice note recorded in the chat.
	MediaTypePTT MediaType = "ptt"

	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
	MediaTypeSticker  MediaType = "sticker"
)

// ErrNoMedia is returned by Event.Download when the event carries no media.
var ErrNoMedia = errors.New("message has no media")

// Media is a downloaded media payload.
type Media struct {
	// Data is the raw media bytes. JSON transports carry it base64-encoded.
	Data []byte `json:"data"`

	// MimeType is the MIME type reported by the sender (e.g., "audio/ogg; codecs=opus").
	MimeType string `json:"mimetype"`
}

// Downloader lazily fetches the media attached to an event.
type Downloader func(ctx context.Context) (*Media, error)

// Event represents an inbound message from any transport.
type Event struct {
	// ID is a unique identifier for this event.
	ID string `json:"id"`

	// Sender identifies who sent the message (e.g., "919876543210@s.whatsapp.net").
	Sender string `json:"sender"`

	// PushName is the display name the sender set in their own client, if any.
	PushName string `json:"push_name,omitempty"`

	// Body is the text of the message. May be empty for media-only messages.
	Body string `json:"body"`

	// HasMedia is true when the message carries a downloadable attachment.
	HasMedia bool `json:"has_media"`

	// Type is the media tag of the message.
	Type MediaType `json:"type"`

	// Timestamp is when the message was sent.
	Timestamp time.Time `json:"timestamp"`

	// Download fetches the attachment. Nil when HasMedia is false.
	Download Downloader `json:"-"`
}

// IsVoice returns true if the event carries an audio attachment or a voice note.
func (e *Event) IsVoice() bool {
	return e.HasMedia && (e.Type == MediaTypeAudio || e.Type == MediaTypePTT)
}

// FetchMedia runs the event's downloader.
func (e *Event) FetchMedia(ctx context.Context) (*Media, error) {
	if !e.HasMedia || e.Download == nil {
		return nil, ErrNoMedia
	}
	return e.Download(ctx)
}

// Reply is the single outbound message produced for an event.
type Reply struct {
	// EventID is the ID of the event this reply answers.
	EventID string `json:"event_id"`

	// To is the recipient, always the sender of the event.
	To string `json:"to"`

	// Text is the message body shown to the user.
	Text string `json:"text"`
}

// NewID returns a fresh event identifier.
func NewID() string {
	return uuid.NewString()
}

// StaticMedia returns a Downloader that yields the given payload.
func StaticMedia(data []byte, mimeType string) Downloader {
	return func(context.Context) (*Media, error) {
		return &Media{Data: data, MimeType: mimeType}, nil
	}
}
