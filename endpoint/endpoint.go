// Package endpoint introspects live GraphQL endpoints and renders the result
// back to SDL text, so a running API can stand in for a versioned schema file
// on either side of the comparison.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wayland-systems/graphql-inspector/errors"
	"github.com/wayland-systems/graphql-inspector/introspection"
	"github.com/wayland-systems/graphql-inspector/pkg/retry"
)

// Client introspects live endpoints over HTTP.
type Client struct {
	http   *http.Client
	retry  retry.Config
	logger *slog.Logger
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry overrides the retry policy for introspection requests.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// New creates an endpoint client.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		retry:  retry.DefaultConfig(),
		logger: logger.With("component", "endpoint"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// IntrospectAndPrint runs the standard introspection query against url and
// returns the schema rendered as SDL. Transient HTTP failures are retried;
// GraphQL-level errors are not.
func (c *Client) IntrospectAndPrint(ctx context.Context, url string) (string, error) {
	body, err := json.Marshal(graphqlRequest{Query: introspection.Query})
	if err != nil {
		return "", errors.WrapInvalid(err, "Client", "IntrospectAndPrint", "encode query")
	}

	var sdl string
	err = retry.Do(ctx, c.retry, func() error {
		var attemptErr error
		sdl, attemptErr = c.introspectOnce(ctx, url, body)
		return attemptErr
	})
	if err != nil {
		return "", errors.WrapFatal(
			fmt.Errorf("%w: %s: %v", errors.ErrEndpointFailed, url, err),
			"Client", "IntrospectAndPrint", "introspect endpoint")
	}

	c.logger.Debug("endpoint introspected", "url", url, "sdl_bytes", len(sdl))
	return sdl, nil
}

func (c *Client) introspectOnce(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", retry.NonRetryable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("endpoint returned %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return "", retry.NonRetryable(fmt.Errorf("endpoint returned %s", resp.Status))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(payload, &gqlResp); err != nil {
		return "", retry.NonRetryable(fmt.Errorf("decode response: %w", err))
	}
	if len(gqlResp.Errors) > 0 {
		return "", retry.NonRetryable(fmt.Errorf("introspection rejected: %s", gqlResp.Errors[0].Message))
	}

	result, err := introspection.Decode(payload)
	if err != nil {
		return "", retry.NonRetryable(err)
	}
	return result.SDL(), nil
}
