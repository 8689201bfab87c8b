package canvas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	apierrors "github.com/noah-isme/canvas-autograder/pkg/errors"
	"github.com/noah-isme/canvas-autograder/pkg/retry"
)

// Client talks to the Canvas REST API with bearer auth, per-request timeouts
// and a retry loop covering transport failures, rate limits and server
// errors. A single underlying http.Client (and its connection pool) is reused
// across requests.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	policy  retry.Policy
	sleep   retry.Sleeper
	logger  *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithPolicy overrides the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithSleeper substitutes the backoff sleep, letting tests run without real
// delays.
func WithSleeper(s retry.Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a Client for the given Canvas instance.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		policy:  retry.Default(),
		sleep:   retry.Wait,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues one API request against path, retrying transport failures and 5xx
// responses with capped exponential backoff and waiting out 429s without
// consuming the attempt budget. Statuses outside those ranges are returned
// as-is; success is the caller's call via Response.OK. When the attempt
// budget is exhausted a transport error propagates, while a 5xx returns the
// last response.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, form url.Values) (*Response, error) {
	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	var resp *Response
	rateLimited := 0
	for attempt := 1; attempt <= c.policy.MaxAttempts; {
		var err error
		resp, err = c.send(ctx, method, rawURL, form)
		if err != nil {
			if attempt == c.policy.MaxAttempts {
				return nil, apierrors.Wrap(err, apierrors.CodeTransport, 0,
					fmt.Sprintf("%s %s failed after %d attempts", method, rawURL, attempt))
			}
			delay := c.policy.Backoff(attempt)
			c.logger.Warn("request failed, retrying",
				zap.String("method", method),
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.policy.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimited++
			delay := c.policy.RateLimitDelay(resp.Header.Get("Retry-After"), rateLimited)
			c.logger.Warn("rate limited, waiting",
				zap.String("method", method),
				zap.String("url", rawURL),
				zap.Duration("delay", delay))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			// Rate limiting does not consume the attempt budget.
			continue
		}

		if resp.StatusCode >= 500 {
			if attempt == c.policy.MaxAttempts {
				return resp, nil
			}
			delay := c.policy.Backoff(attempt)
			c.logger.Warn("server error, retrying",
				zap.String("method", method),
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		return resp, nil
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, method, rawURL string, form url.Values) (*Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: data}, nil
}
