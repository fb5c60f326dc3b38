package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/sethvargo/go-retry"
)

// maxBody bounds how much of a response body is read.
const maxBody = 16 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, body)
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// Request describes one outgoing call. Body is JSON encoded unless it is raw bytes, an
// io.Reader or url.Values (sent as a form).
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   any
}

// Response is a fully read response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client wraps http.Client with JSON helpers and retries for rate-limited calls.
type Client struct {
	http       *http.Client
	userAgent  string
	maxRetries uint64
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithRetry retries 429 and 503 responses up to max times with exponential backoff
// starting at base. A Retry-After header longer than the backoff wins.
func WithRetry(max uint64, base time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.baseDelay = base
	}
}

// WithMaxDelay caps a single backoff wait.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client. Without options it has a 10s timeout and no retries.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		userAgent: "conduit",
		baseDelay: 500 * time.Millisecond,
		maxDelay:  30 * time.Second,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient is the underlying http.Client, for libraries that take one.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// With returns a copy of c with opts applied.
func (c *Client) With(opts ...Option) *Client {
	cp := *c
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Do sends the request, retrying rate-limited responses, and returns the response for
// any 2xx status. Other statuses become a *StatusError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	// Readers are buffered so the body survives a retry.
	if r, ok := req.Body.(io.Reader); ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body = data
	}

	var (
		resp *Response
		hint time.Duration
	)
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))
	backoff = retry.WithCappedDuration(c.maxDelay, backoff)
	backoff = honourRetryAfter(backoff, &hint, c.maxDelay)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := c.once(ctx, req)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && retryable(se.Status) {
				hint = se.RetryAfter
				c.logger.Debug("rate limited, retrying", "url", req.URL, "status", se.Status, "retry_after", se.RetryAfter)
				return retry.RetryableError(err)
			}
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// JSON sends the request and decodes a JSON response into out (when non-nil).
func (c *Client) JSON(ctx context.Context, req Request, out any) error {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL, err)
	}
	return nil
}

// GetJSON is a shorthand for a GET request decoded into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, header http.Header, out any) error {
	return c.JSON(ctx, Request{Method: http.MethodGet, URL: rawURL, Query: query, Header: header}, out)
}

func (c *Client) once(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := req.URL
	if len(req.Query) > 0 {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", req.URL, err)
		}
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	case io.Reader:
		body = b
	case url.Values:
		body = bytes.NewBufferString(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, redact(target), err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", redact(target), err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			URL:        redact(target),
			Status:     res.StatusCode,
			Body:       string(data),
			RetryAfter: parseRetryAfter(res.Header.Get("Retry-After")),
		}
	}
	return &Response{Status: res.StatusCode, Header: res.Header, Body: data}, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// parseRetryAfter accepts delay seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func honourRetryAfter(next retry.Backoff, hint *time.Duration, limit time.Duration) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		if *hint > d {
			d = *hint
		}
		if limit > 0 && d > limit {
			d = limit
		}
		*hint = 0
		return d, false
	})
}

// redact drops the query string, which often carries API keys.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
