// Package openai implements the Provider interface against any
// OpenAI-compatible API.
//
// It uses the Chat Completions API for text and the Audio Transcription API
// (Whisper) for voice notes: the transcript is answered like a text message.
// Pointing base_url at Ollama, vLLM or llama.cpp server runs it fully local.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/provider"
)

// Provider uses OpenAI-compatible APIs for completion and transcription.
type Provider struct {
	client             *goopenai.Client
	completionModel    string
	transcriptionModel string
	persona            string
	temperature        float32
	timeout            time.Duration
}

// New creates a new OpenAI-compatible provider from config.
func New(cfg config.OpenAIConfig, persona string) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.TranscriptionModel
	if model == "" {
		model = goopenai.Whisper1
	}
	return &Provider{
		client:             goopenai.NewClientWithConfig(clientCfg),
		completionModel:    cfg.CompletionModel,
		transcriptionModel: model,
		persona:            persona,
		temperature:        cfg.Temperature,
		timeout:            timeout,
	}
}

// Name returns the backend identifier.
func (p *Provider) Name() string { return "openai" }

// Complete sends the persona, prior turns and the message to the chat API.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.completionModel,
		Messages:    buildMessages(p.persona, req),
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", classify(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned: %w", provider.ErrMalformed)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai: empty completion: %w", provider.ErrMalformed)
	}
	slog.Debug("openai completion received", "model", p.completionModel, "length", len(content))
	return content, nil
}

// CompleteAudio transcribes the voice note and answers the transcript.
func (p *Provider) CompleteAudio(ctx context.Context, req provider.AudioRequest) (string, error) {
	if len(req.Audio) == 0 {
		return "", errors.New("openai: empty audio payload")
	}

	tctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tr, err := p.client.CreateTranscription(tctx, goopenai.AudioRequest{
		Model:    p.transcriptionModel,
		FilePath: "voice" + extFromMimeType(req.MimeType),
		Reader:   bytes.NewReader(req.Audio),
	})
	if err != nil {
		return "", fmt.Errorf("openai: transcription: %w", classify(err))
	}

	transcript := strings.TrimSpace(tr.Text)
	if transcript == "" {
		return "", fmt.Errorf("openai: empty transcription: %w", provider.ErrMalformed)
	}
	slog.Debug("transcription complete", "text_length", len(transcript))

	return p.Complete(ctx, provider.Request{Message: transcript, History: req.History})
}

// Close is a no-op for the OpenAI provider.
func (p *Provider) Close() error { return nil }

// statusError exposes the status code go-openai stores in a struct field.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string       { return e.err.Error() }
func (e *statusError) Unwrap() error       { return e.err }
func (e *statusError) HTTPStatusCode() int { return e.code }

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return provider.Classify(&statusError{code: apiErr.HTTPStatusCode, err: err})
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return provider.Classify(&statusError{code: reqErr.HTTPStatusCode, err: err})
	}
	return provider.Classify(err)
}

func buildMessages(persona string, req provider.Request) []goopenai.ChatCompletionMessage {
	if strings.TrimSpace(persona) == "" {
		persona = provider.DefaultPersona
	}
	msgs := []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: persona + "\n\n" + provider.OutputContract},
	}
	if len(req.History) > 0 {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: "Context: " + strings.Join(req.History, "\n"),
		})
	}
	return append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Message,
	})
}

func extFromMimeType(mt string) string {
	switch {
	case strings.Contains(mt, "ogg"), strings.Contains(mt, "opus"):
		return ".ogg"
	case strings.Contains(mt, "wav"):
		return ".wav"
	case strings.Contains(mt, "mp3"), strings.Contains(mt, "mpeg"):
		return ".mp3"
	case strings.Contains(mt, "mp4"), strings.Contains(mt, "m4a"), strings.Contains(mt, "aac"):
		return ".m4a"
	case strings.Contains(mt, "webm"):
		return ".webm"
	case strings.Contains(mt, "flac"):
		return ".flac"
	default:
		return ".ogg"
	}
}
