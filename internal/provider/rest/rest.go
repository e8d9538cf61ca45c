// Package rest implements the Provider interface against a locally hosted
// query service.
//
// The service exposes two endpoints:
//   - POST /query  {"query": "..."} -> {"result": "...", "status": "..."}
//   - GET  /health                  -> any 2xx when healthy
//
// The result is forwarded to the user as is; it is not expected to carry the
// structured reply payload the generative providers are asked for.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/provider"
)

// QueryResult is the decoded body of a successful /query call.
type QueryResult struct {
	Result string `json:"result"`
	Status string `json:"status"`
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL       string
	queryTimeout  time.Duration
	healthTimeout time.Duration
	client        *http.Client
}

// New creates a backend client from config.
func New(cfg config.BackendConfig) *Client {
	qt := cfg.QueryTimeout
	if qt <= 0 {
		qt = 30 * time.Second
	}
	ht := cfg.HealthTimeout
	if ht <= 0 {
		ht = 5 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		queryTimeout:  qt,
		healthTimeout: ht,
		client:        &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "rest" }

// Query posts the user's question to /query.
func (c *Client) Query(ctx context.Context, q string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"query": q})
	if err != nil {
		return nil, fmt.Errorf("rest: marshalling query: %w", err)
	}

	endpoint := c.baseURL + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rest: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("calling backend", "url", endpoint, "query_length", len(q))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rest: query request: %w", provider.Classify(err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, endpoint); err != nil {
		return nil, fmt.Errorf("rest: query: %w", err)
	}

	var result QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("rest: decoding query response: %w: %w", provider.ErrMalformed, err)
	}
	if result.Result == "" {
		return nil, fmt.Errorf("rest: response has no result: %w", provider.ErrMalformed)
	}
	return &result, nil
}

// Complete adapts Query to the Provider interface. History is not sent: the
// backend keeps no per-sender state.
func (c *Client) Complete(ctx context.Context, req provider.Request) (string, error) {
	res, err := c.Query(ctx, req.Message)
	if err != nil {
		return "", err
	}
	return res.Result, nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	endpoint := c.baseURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("rest: creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rest: health request: %w", provider.Classify(err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if err := checkStatus(resp, endpoint); err != nil {
		return fmt.Errorf("rest: health: %w", err)
	}
	return nil
}

// Close is a no-op for the REST client.
func (c *Client) Close() error { return nil }

func checkStatus(resp *http.Response, endpoint string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return provider.Classify(&provider.HTTPStatusError{
		StatusCode: resp.StatusCode,
		URL:        endpoint,
		Body:       strings.TrimSpace(string(body)),
	})
}
