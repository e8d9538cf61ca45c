// Package gemini implements the Provider interface using Google's Generative
// AI API.
//
// Text messages are sent as a single prompt carrying the persona, prior turns
// and the structured output contract. Voice notes are sent inline as a blob
// next to a fixed instruction prompt, so no separate transcription step is
// needed.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/provider"
)

// generator is the part of *genai.GenerativeModel the provider uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Provider uses the Gemini API for text and voice completions.
type Provider struct {
	client  *genai.Client
	model   generator
	name    string
	persona string
	timeout time.Duration
}

// New creates a Gemini provider from config.
func New(ctx context.Context, cfg config.GeminiConfig, persona string) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	configure(model, cfg)

	p := newWithGenerator(model, cfg.Model, persona, cfg.Timeout)
	p.client = client
	return p, nil
}

// configure applies the sampling settings; zero values keep the model default.
func configure(model *genai.GenerativeModel, cfg config.GeminiConfig) {
	if cfg.Temperature > 0 {
		model.SetTemperature(cfg.Temperature)
	}
	if cfg.TopP > 0 {
		model.SetTopP(cfg.TopP)
	}
	if cfg.TopK > 0 {
		model.SetTopK(cfg.TopK)
	}
}

func newWithGenerator(g generator, name, persona string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		model:   g,
		name:    name,
		persona: persona,
		timeout: timeout,
	}
}

// Name returns the backend identifier.
func (p *Provider) Name() string { return "gemini" }

// Complete sends the message with persona and history to the model.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	prompt := provider.BuildPrompt(p.persona, req.Message, req.History)
	return p.generate(ctx, genai.Text(prompt))
}

// CompleteAudio forwards the raw audio inline together with the voice prompt.
func (p *Provider) CompleteAudio(ctx context.Context, req provider.AudioRequest) (string, error) {
	if len(req.Audio) == 0 {
		return "", errors.New("gemini: empty audio payload")
	}
	blob := genai.Blob{
		MIMEType: baseMimeType(req.MimeType),
		Data:     req.Audio,
	}
	slog.Debug("sending audio to gemini", "model", p.name, "mime_type", blob.MIMEType, "bytes", len(req.Audio))
	return p.generate(ctx, blob, genai.Text(provider.BuildVoicePrompt(req.History)))
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *Provider) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", classify(err))
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini: no text in response: %w", provider.ErrMalformed)
	}
	slog.Debug("gemini response received", "model", p.name, "length", len(text))
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range c.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}

// baseMimeType strips parameters: "audio/ogg; codecs=opus" -> "audio/ogg".
func baseMimeType(mt string) string {
	mt = strings.TrimSpace(mt)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" {
		return "audio/ogg"
	}
	return strings.ToLower(mt)
}

// statusError exposes the HTTP status googleapi keeps in a struct field.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string       { return e.err.Error() }
func (e *statusError) Unwrap() error       { return e.err }
func (e *statusError) HTTPStatusCode() int { return e.code }

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return provider.Classify(&statusError{code: apiErr.Code, err: err})
	}
	return provider.Classify(err)
}
