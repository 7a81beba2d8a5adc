package travel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"travel-time-service/internal/platform/metrics"
)

const defaultTimeout = 10 * time.Second

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 500 {
		body = body[:500]
	}
	return fmt.Sprintf("%s: code %d: %s", e.Provider, e.Code, body)
}

// Option configures a provider client.
type Option func(*client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.session = hc }
}

// WithBaseURL overrides the provider base URL; a trailing slash is ignored.
func WithBaseURL(u string) Option {
	return func(c *client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithMaxAttempts enables retries of transient failures. Interactive clients
// default to a single attempt.
func WithMaxAttempts(n int) Option {
	return func(c *client) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *client) { c.metrics = m }
}

// client holds the HTTP plumbing shared by all provider clients.
type client struct {
	provider    string
	session     *http.Client
	baseURL     string
	maxAttempts int
	backoff     time.Duration
	metrics     *metrics.Collector
}

func newClient(provider, baseURL string, opts []Option) client {
	c := client{
		provider:    provider,
		session:     &http.Client{Timeout: defaultTimeout},
		baseURL:     baseURL,
		maxAttempts: 1,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *client) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{
			Provider: c.provider,
			Code:     resp.StatusCode,
			Body:     strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx
// responses) with exponential backoff while respecting context cancellation.
// makeReq is called once per attempt so request bodies can be rebuilt.
func (c *client) doWithRetry(
	ctx context.Context,
	op string,
	makeReq func() (*http.Request, error),
) (resp *http.Response, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveProvider(c.provider, op, time.Since(start), err) }()

	backoff := c.backoff

	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// getJSON performs a GET and decodes the response body into out.
func (c *client) getJSON(ctx context.Context, op, endpoint string, query map[string][]string, out any) error {
	resp, err := c.doWithRetry(ctx, op, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// postJSON marshals body, POSTs it and decodes the response into out.
func (c *client) postJSON(ctx context.Context, op, endpoint string, body any, decorate func(*http.Request), out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	resp, err := c.doWithRetry(ctx, op, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		if decorate != nil {
			decorate(req)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
