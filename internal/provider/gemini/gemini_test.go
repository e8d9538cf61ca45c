package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/provider"
)

type fakeGenerator struct {
	resp     *genai.GenerateContentResponse
	err      error
	parts    []genai.Part
	deadline bool
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	_, f.deadline = ctx.Deadline()
	return f.resp, f.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestComplete_SendsPromptAndReturnsText(t *testing.T) {
	g := &fakeGenerator{resp: textResponse(genai.Text("```json\n"), genai.Text(`{"reply":"hi"}`+"\n```"))}
	p := newWithGenerator(g, "gemini-2.0-flash", "", time.Second)

	out, err := p.Complete(context.Background(), provider.Request{
		Message: "What services do you offer?",
		History: []string{"user: hello"},
	})
	require.NoError(t, err)
	require.Equal(t, "```json\n{\"reply\":\"hi\"}\n```", out)
	require.True(t, g.deadline)

	require.Len(t, g.parts, 1)
	prompt, ok := g.parts[0].(genai.Text)
	require.True(t, ok)
	require.Contains(t, string(prompt), "What services do you offer?")
	require.Contains(t, string(prompt), "user: hello")
}

func TestCompleteAudio_SendsBlobAndVoicePrompt(t *testing.T) {
	g := &fakeGenerator{resp: textResponse(genai.Text("Sure!"))}
	p := newWithGenerator(g, "gemini-2.0-flash", "", time.Second)

	out, err := p.CompleteAudio(context.Background(), provider.AudioRequest{
		Audio:    []byte{0x4f, 0x67, 0x67, 0x53},
		MimeType: "audio/ogg; codecs=opus",
	})
	require.NoError(t, err)
	require.Equal(t, "Sure!", out)

	require.Len(t, g.parts, 2)
	blob, ok := g.parts[0].(genai.Blob)
	require.True(t, ok)
	require.Equal(t, "audio/ogg", blob.MIMEType)
	require.Equal(t, []byte{0x4f, 0x67, 0x67, 0x53}, blob.Data)
	require.Equal(t, genai.Text(provider.VoicePrompt), g.parts[1])
}

func TestCompleteAudio_EmptyPayload(t *testing.T) {
	p := newWithGenerator(&fakeGenerator{}, "m", "", time.Second)
	_, err := p.CompleteAudio(context.Background(), provider.AudioRequest{MimeType: "audio/ogg"})
	require.Error(t, err)
}

func TestComplete_ClassifiesUpstreamErrors(t *testing.T) {
	g := &fakeGenerator{err: status.Error(codes.ResourceExhausted, "quota exceeded")}
	p := newWithGenerator(g, "m", "", time.Second)

	_, err := p.Complete(context.Background(), provider.Request{Message: "hi"})
	require.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestComplete_ClassifiesRESTStatusErrors(t *testing.T) {
	cases := map[int]error{
		http.StatusTooManyRequests:    provider.ErrUnavailable,
		http.StatusServiceUnavailable: provider.ErrUnavailable,
		http.StatusGatewayTimeout:     provider.ErrTimeout,
	}
	for code, want := range cases {
		g := &fakeGenerator{err: fmt.Errorf("rpc: %w", &googleapi.Error{Code: code, Message: "upstream"})}
		p := newWithGenerator(g, "m", "", time.Second)

		_, err := p.Complete(context.Background(), provider.Request{Message: "hi"})
		require.ErrorIs(t, err, want, "status=%d", code)
	}

	g := &fakeGenerator{err: &googleapi.Error{Code: http.StatusBadRequest, Message: "bad prompt"}}
	p := newWithGenerator(g, "m", "", time.Second)
	_, err := p.Complete(context.Background(), provider.Request{Message: "hi"})
	require.Error(t, err)
	require.False(t, errors.Is(err, provider.ErrUnavailable))
}

func TestComplete_EmptyResponseIsMalformed(t *testing.T) {
	cases := map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"no text parts": textResponse(genai.Blob{MIMEType: "image/png"}),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			p := newWithGenerator(&fakeGenerator{resp: resp}, "m", "", time.Second)
			_, err := p.Complete(context.Background(), provider.Request{Message: "hi"})
			require.True(t, errors.Is(err, provider.ErrMalformed))
		})
	}
}

func TestBaseMimeType(t *testing.T) {
	require.Equal(t, "audio/ogg", baseMimeType("audio/ogg; codecs=opus"))
	require.Equal(t, "audio/mpeg", baseMimeType("Audio/MPEG"))
	require.Equal(t, "audio/ogg", baseMimeType(""))
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), config.GeminiConfig{Model: "gemini-2.0-flash"}, "")
	require.Error(t, err)
}

func TestConfigure_SamplingSettings(t *testing.T) {
	m := &genai.GenerativeModel{}
	configure(m, config.GeminiConfig{Temperature: 0.4, TopP: 0.9, TopK: 40})
	require.NotNil(t, m.Temperature)
	require.InDelta(t, 0.4, *m.Temperature, 1e-6)
	require.NotNil(t, m.TopP)
	require.InDelta(t, 0.9, *m.TopP, 1e-6)
	require.NotNil(t, m.TopK)
	require.Equal(t, int32(40), *m.TopK)

	unset := &genai.GenerativeModel{}
	configure(unset, config.GeminiConfig{})
	require.Nil(t, unset.Temperature)
	require.Nil(t, unset.TopP)
	require.Nil(t, unset.TopK)
}
