// Package scoring calls the external AI scoring service for submitted videos.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"talentgate/internal/candidacy/ports"
	dErrors "talentgate/pkg/domain-errors"
)

// Client is an HTTP implementation of the Scorer port. The result body is
// kept opaque: the platform caches whatever the scoring service returns and
// never interprets it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New constructs a scoring client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("scoring base URL is required")
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Score submits the candidacy context for analysis and returns the opaque
// result document.
func (c *Client) Score(ctx context.Context, req ports.ScoreRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode scoring request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build scoring request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "scoring service unreachable")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read scoring response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("scoring service returned status %d", resp.StatusCode))
	}
	if !json.Valid(payload) {
		return nil, dErrors.New(dErrors.CodeInternal, "scoring service returned malformed JSON")
	}
	return json.RawMessage(payload), nil
}
