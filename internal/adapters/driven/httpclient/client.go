// Package httpclient provides the JSON-over-HTTP plumbing shared by the
// embedding and LLM adapters: request timeouts, status handling and
// exponential retry of transient failures.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/logger"
)

// Default retry configuration.
const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 500 * time.Millisecond
	DefaultBackoffMax  = 30 * time.Second
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap maps 429 to domain.ErrRateLimited.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return nil
}

// Retryable reports whether the status is worth retrying: 429 and 5xx.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client sends JSON requests for one provider.
type Client struct {
	HTTP        *http.Client
	Provider    string
	MaxRetries  uint64
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// New creates a client with the default retry policy.
func New(provider string, timeout time.Duration) *Client {
	return &Client{
		HTTP:        &http.Client{Timeout: timeout},
		Provider:    provider,
		MaxRetries:  DefaultMaxRetries,
		BackoffBase: DefaultBackoffBase,
		BackoffMax:  DefaultBackoffMax,
	}
}

// PostJSON marshals body, posts it to url with the given headers and
// decodes a successful response into out. 429, 5xx and transport errors
// are retried with exponential backoff.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var respBody []byte
	err = retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		respBody, err = c.send(req)
		if err != nil {
			if isRetryable(ctx, err) {
				logger.With("provider", c.Provider).Debug("retrying request", "err", err)
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Get issues a GET without retries. It is used for lightweight pings.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: failed to create ping request: %w", c.Provider, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if _, err := c.send(req); err != nil {
		return fmt.Errorf("%s: ping failed: %w", c.Provider, err)
	}
	return nil
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Provider: c.Provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) backoff() retry.Backoff {
	base := c.BackoffBase
	if base <= 0 {
		base = DefaultBackoffBase
	}
	b := retry.NewExponential(base)
	if c.BackoffMax > 0 {
		b = retry.WithCappedDuration(c.BackoffMax, b)
	}
	return retry.WithMaxRetries(c.MaxRetries, b)
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Retryable()
	}
	// Transport failures (connection refused, reset, client timeout).
	return !errors.Is(err, context.Canceled)
}
