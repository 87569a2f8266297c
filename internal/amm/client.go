// Package amm talks to the AMM service that custodies bonding-curve pools
// and accrues creator fees. The engine reads claimable balances from it and
// asks it to move accrued fees to the treasury.
package amm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client exposes the two AMM operations the fee engine depends on.
type Client interface {
	// GetClaimable returns the lamports currently claimable from a pool.
	GetClaimable(ctx context.Context, poolID string) (int64, error)

	// Claim asks the AMM service to move a pool's accrued fees to the
	// treasury and returns the settled claim result.
	Claim(ctx context.Context, poolID string) (*ClaimResult, error)
}

// ClaimResult is the normalized outcome of a claim request. Exactly one of
// TxRef and UnsignedTxBase64 is set when Amount is positive: either the
// service settled the claim itself, or it handed back an unsigned
// transaction for the treasury to sign and submit.
type ClaimResult struct {
	// Amount is the lamports claimed (or claimable via the unsigned tx).
	Amount int64
	// TxRef is the settlement transaction reference, when the service
	// settled the claim on its own.
	TxRef string
	// UnsignedTxBase64 is a base64-encoded unsigned transaction the caller
	// must sign and submit, when the service delegates settlement.
	UnsignedTxBase64 string
}

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// HTTPClientImpl implements Client over the AMM service's HTTP API.
type HTTPClientImpl struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// Option configures HTTPClientImpl.
type Option func(*HTTPClientImpl)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClientImpl) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts per request.
func WithMaxRetries(n int) Option {
	return func(c *HTTPClientImpl) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *HTTPClientImpl) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClientImpl) {
		c.client = client
	}
}

// NewHTTPClient creates a new AMM service client.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClientImpl {
	c := &HTTPClientImpl{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClientImpl)(nil)

// GetClaimable returns the lamports currently claimable from a pool.
func (c *HTTPClientImpl) GetClaimable(ctx context.Context, poolID string) (int64, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/pools/%s/claimable", url.PathEscape(poolID)), nil)
	if err != nil {
		return 0, err
	}

	amount, err := parseClaimableResponse(body)
	if err != nil {
		return 0, fmt.Errorf("pool %s: %w", poolID, err)
	}
	return amount, nil
}

// Claim asks the AMM service to claim a pool's accrued fees.
func (c *HTTPClientImpl) Claim(ctx context.Context, poolID string) (*ClaimResult, error) {
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/pools/%s/claim", url.PathEscape(poolID)), nil)
	if err != nil {
		return nil, err
	}

	result, err := parseClaimResponse(body)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", poolID, err)
	}
	return result, nil
}

// do performs one HTTP request with retries and exponential backoff.
// Claim POSTs are retried too: the AMM service treats a claim of an already
// drained pool as a zero-amount no-op, so replays are safe.
func (c *HTTPClientImpl) do(ctx context.Context, method, path string, reqBody io.Reader) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = delay * 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
			continue
		default:
			// Client errors are not retried
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// jsonNumber parses a JSON value that may arrive as a number or a numeric
// string, both of which the AMM service has been observed to send.
func jsonNumber(raw json.RawMessage) (int64, bool) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
