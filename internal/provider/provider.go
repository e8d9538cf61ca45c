// Package provider defines the interface for completion backends.
//
// A provider takes the user's message (or a voice note) and returns the raw
// text produced upstream. The bot ships with three backends: Gemini (cloud),
// OpenAI-compatible (cloud or self-hosted via Ollama/vLLM) and REST (a locally
// hosted query service).
package provider

import "context"

// Request is a single text completion call.
type Request struct {
	// Message is the user's text, already trimmed.
	Message string

	// History holds prior turns for the same sender, oldest first.
	History []string
}

// AudioRequest is a single voice completion call.
type AudioRequest struct {
	// Audio is the raw audio payload.
	Audio []byte

	// MimeType is the MIME type of the audio (e.g., "audio/ogg; codecs=opus").
	MimeType string

	// History holds prior turns for the same sender, oldest first.
	History []string
}

// Provider is the interface every completion backend implements.
type Provider interface {
	// Name returns the backend identifier (e.g., "gemini", "openai", "rest").
	Name() string

	// Complete returns the raw upstream text for a message.
	Complete(ctx context.Context, req Request) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}

// AudioCompleter is implemented by providers that accept voice notes.
type AudioCompleter interface {
	// CompleteAudio forwards the audio with the voice instruction prompt and
	// returns the raw upstream text.
	CompleteAudio(ctx context.Context, req AudioRequest) (string, error)
}

// HealthChecker is implemented by providers that expose a health probe.
type HealthChecker interface {
	Health(ctx context.Context) error
}
