package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/provider"
)

type capturedChat struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.OpenAIConfig{
		APIKey:          "test-key",
		BaseURL:         srv.URL + "/v1",
		CompletionModel: "llama3.2",
		Temperature:     0.3,
		Timeout:         2 * time.Second,
	}, "")
}

func TestComplete_HappyPath(t *testing.T) {
	var got capturedChat
	var auth string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatBody(`  {"reply":"Hello!","context":"greeting"}  `))
	})

	out, err := p.Complete(context.Background(), provider.Request{
		Message: "hi there",
		History: []string{"user: earlier"},
	})
	require.NoError(t, err)
	require.Equal(t, `{"reply":"Hello!","context":"greeting"}`, out)
	require.Equal(t, "Bearer test-key", auth)

	require.Equal(t, "llama3.2", got.Model)
	require.InDelta(t, 0.3, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 3)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Contains(t, got.Messages[0].Content, "KartavyaBot")
	require.Contains(t, got.Messages[1].Content, "user: earlier")
	require.Equal(t, "user", got.Messages[2].Role)
	require.Equal(t, "hi there", got.Messages[2].Content)
}

func TestComplete_NoChoicesIsMalformed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","choices":[]}`)
	})
	_, err := p.Complete(context.Background(), provider.Request{Message: "hi"})
	require.ErrorIs(t, err, provider.ErrMalformed)
}

func TestComplete_RateLimitedIsUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
	})
	_, err := p.Complete(context.Background(), provider.Request{Message: "hi"})
	require.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestComplete_ConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p := New(config.OpenAIConfig{BaseURL: base + "/v1", CompletionModel: "m", Timeout: time.Second}, "")
	_, err := p.Complete(context.Background(), provider.Request{Message: "hi"})
	require.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestCompleteAudio_TranscribesThenCompletes(t *testing.T) {
	var chat capturedChat
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/audio/transcriptions":
			require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			require.Equal(t, "whisper-1", r.FormValue("model"))
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			require.Equal(t, "voice.ogg", hdr.Filename)
			data, _ := io.ReadAll(f)
			require.Equal(t, "OggS", string(data))
			_, _ = io.WriteString(w, `{"text":"what are your prices"}`)
		case "/v1/chat/completions":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&chat))
			_, _ = io.WriteString(w, chatBody("Our prices start at 10k."))
		default:
			http.NotFound(w, r)
		}
	})

	out, err := p.CompleteAudio(context.Background(), provider.AudioRequest{
		Audio:    []byte("OggS"),
		MimeType: "audio/ogg; codecs=opus",
	})
	require.NoError(t, err)
	require.Equal(t, "Our prices start at 10k.", out)
	require.Equal(t, "what are your prices", chat.Messages[len(chat.Messages)-1].Content)
}

func TestCompleteAudio_EmptyTranscriptIsMalformed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"   "}`)
	})
	_, err := p.CompleteAudio(context.Background(), provider.AudioRequest{Audio: []byte("x"), MimeType: "audio/ogg"})
	require.ErrorIs(t, err, provider.ErrMalformed)
}

func TestExtFromMimeType(t *testing.T) {
	cases := map[string]string{
		"audio/ogg; codecs=opus": ".ogg",
		"audio/mpeg":             ".mp3",
		"audio/mp4":              ".m4a",
		"audio/wav":              ".wav",
		"":                       ".ogg",
	}
	for in, want := range cases {
		require.Equal(t, want, extFromMimeType(in), "mime=%q", in)
	}
}
