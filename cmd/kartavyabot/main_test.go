package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/provider/gemini"
	"github.com/kartavyaai/kartavyabot/internal/provider/openai"
	"github.com/kartavyaai/kartavyabot/internal/provider/rest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kartavyabot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "kartavyabot dev\n", out)
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := run(t, "check", "--config", writeConfig(t, "backend:\n  base_url: "+srv.URL+"\n"))
	require.NoError(t, err)
	require.Contains(t, out, "is healthy")

	down := httptest.NewServer(http.NotFoundHandler())
	base := down.URL
	down.Close()

	_, err = run(t, "check", "--config", writeConfig(t, "backend:\n  base_url: "+base+"\n"))
	require.ErrorContains(t, err, "not available")
}

func TestBroadcast_RequiresContacts(t *testing.T) {
	_, err := run(t, "broadcast", "--config", writeConfig(t, "{}\n"))
	require.ErrorContains(t, err, "no contacts file")
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	_, err := run(t, "serve", "--config", writeConfig(t, "bot:\n  mode: echo\n"))
	require.ErrorContains(t, err, "invalid configuration")
}

func TestBuildProvider(t *testing.T) {
	cfg := &config.Config{Bot: config.BotConfig{Mode: config.ModeMenu}}
	p, err := buildProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, p)

	cfg.Bot.Mode = config.ModeRelay
	p, err = buildProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &rest.Client{}, p)

	cfg.Bot.Mode = config.ModeAssistant
	cfg.Bot.Provider = "openai"
	p, err = buildProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &openai.Provider{}, p)

	cfg.Bot.Provider = "gemini"
	cfg.Gemini.APIKey = "test-key"
	p, err = buildProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &gemini.Provider{}, p)
	require.NoError(t, p.Close())

	cfg.Bot.Provider = "claude"
	_, err = buildProvider(context.Background(), cfg)
	require.Error(t, err)
}

func TestLoadContacts(t *testing.T) {
	dir, err := loadContacts("")
	require.NoError(t, err)
	require.Nil(t, dir)

	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("phone,name\n111,Asha\n"), 0o600))
	dir, err = loadContacts(path)
	require.NoError(t, err)
	require.Equal(t, 1, dir.Len())
}
