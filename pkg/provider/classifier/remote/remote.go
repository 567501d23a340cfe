// Package remote provides the HTTP implementation of the classifier provider.
// It targets a JSON-over-HTTP classification service exposing POST /classify.
//
// Typical usage:
//
//	p := remote.New("https://classify.example.com",
//	    remote.WithAPIKey(key),
//	    remote.WithTimeout(5*time.Second),
//	)
//	payload, err := p.Classify(ctx, req)
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marchewka/scribeline/pkg/provider/classifier"
	"github.com/marchewka/scribeline/pkg/types"
)

const (
	classifyEndpoint = "/classify"
	itemsEndpoint    = "/items"
	defaultTimeout   = 10 * time.Second

	// maxResponseBytes bounds how much of a response body is read. A
	// classification payload is a few kilobytes; anything near this limit is
	// a misbehaving service.
	maxResponseBytes = 1 << 20
)

// Compile-time interface assertions.
var (
	_ classifier.Provider = (*Provider)(nil)
	_ classifier.Saver    = (*Provider)(nil)
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithAPIKey sets the Bearer token sent in the Authorization header.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. Useful in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider calls the remote classification service over HTTP.
// Safe for concurrent use.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Provider targeting the service at baseURL
// (e.g., "https://classify.example.com").
func New(baseURL string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Classify submits req to POST /classify and returns the raw response body.
func (p *Provider) Classify(ctx context.Context, req classifier.Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("remote classifier: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+classifyEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote classifier: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote classifier: request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("remote classifier: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote classifier: unexpected status %d: %s", resp.StatusCode, truncate(payload, 200))
	}
	return json.RawMessage(payload), nil
}

// Save submits items to POST /items. Used by the save queue during flushes.
func (p *Provider) Save(ctx context.Context, items []types.Item) error {
	body, err := json.Marshal(map[string][]types.Item{"items": items})
	if err != nil {
		return fmt.Errorf("remote classifier: marshal items: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+itemsEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remote classifier: build save request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("remote classifier: save request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("remote classifier: read save response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote classifier: save: unexpected status %d: %s", resp.StatusCode, truncate(payload, 200))
	}
	return nil
}

// truncate shortens b for inclusion in error messages.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
