// Package httpclient provides the HTTP client used to fetch remote station
// reference tables, with context-bound timeouts, connection pooling, and
// observability hooks.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sharksmhi/ctdstations/internal/errors"
)

const (
	// DefaultTimeout is applied when the request context has no deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps the size of a fetched body (station tables are small).
	DefaultMaxBodyBytes int64 = 32 << 20

	// Default connection pool settings
	defaultMaxIdleConns        = 16
	defaultMaxIdleConnsPerHost = 4
	defaultIdleConnTimeout     = 90 * time.Second

	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 15 * time.Second
	defaultDialTimeout           = 15 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	defaultUserAgent = "ctdstations"
)

// Client wraps http.Client with per-request timeouts, User-Agent injection,
// and before/after hooks for metrics and logging.
//
// Thread-safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
	maxBodyBytes   int64

	hookMu        sync.RWMutex
	beforeRequest func(*http.Request)
	afterResponse func(*http.Request, *http.Response, error)
}

// Config holds configuration for creating an HTTP client.
type Config struct {
	// DefaultTimeout is the timeout applied if request context has no deadline.
	// Zero selects the package default, negative disables it.
	DefaultTimeout time.Duration

	// UserAgent is added to all requests
	UserAgent string

	// MaxBodyBytes limits how much of a response FetchBytes reads (default: 32 MiB)
	MaxBodyBytes int64

	// MaxIdleConns controls connection pool size
	MaxIdleConns int

	// MaxIdleConnsPerHost controls per-host connection pool
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections stay in pool
	IdleConnTimeout time.Duration

	// Transport overrides the pooled transport. Tests use it to inject mocks.
	Transport http.RoundTripper
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      DefaultTimeout,
		UserAgent:           defaultUserAgent,
		MaxBodyBytes:        DefaultMaxBodyBytes,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
}

// New creates a new HTTP client with the given configuration.
// Accepts nil cfg (falls back to DefaultConfig) and does not mutate the caller's config.
func New(cfg *Config) *Client {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		c = *cfg
		if c.DefaultTimeout == 0 {
			c.DefaultTimeout = DefaultTimeout
		}
		if c.UserAgent == "" {
			c.UserAgent = defaultUserAgent
		}
		if c.MaxBodyBytes <= 0 {
			c.MaxBodyBytes = DefaultMaxBodyBytes
		}
		if c.MaxIdleConns == 0 {
			c.MaxIdleConns = defaultMaxIdleConns
		}
		if c.MaxIdleConnsPerHost == 0 {
			c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
		}
		if c.IdleConnTimeout == 0 {
			c.IdleConnTimeout = defaultIdleConnTimeout
		}
	}

	transport := c.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialTimeout,
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          c.MaxIdleConns,
			MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
			IdleConnTimeout:       c.IdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
			ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		}
	}

	return &Client{
		// No client-level timeout; Do bounds each request with its context
		client:         &http.Client{Transport: transport},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
		maxBodyBytes:   c.MaxBodyBytes,
	}
}

// Do executes an HTTP request bound to ctx. Callers that need a deadline set
// it on ctx; FetchBytes applies the default timeout itself.
//
// The response body must be closed by the caller if err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.hookMu.RLock()
	beforeHook := c.beforeRequest
	c.hookMu.RUnlock()
	if beforeHook != nil {
		beforeHook(req)
	}

	resp, err := c.client.Do(req)

	c.hookMu.RLock()
	afterHook := c.afterResponse
	c.hookMu.RUnlock()
	if afterHook != nil {
		afterHook(req, resp, err)
	}

	return resp, err
}

// Get performs a GET request with context.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// FetchBytes GETs url and returns the full body. Non-2xx statuses, transport
// failures, and bodies larger than the configured limit are returned as
// network-category errors.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			NetworkContext(url, c.defaultTimeout).
			Timing("fetch", time.Since(start)).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Newf("unexpected HTTP status %d", resp.StatusCode).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			NetworkContext(url, c.defaultTimeout).
			Context("status_code", resp.StatusCode).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read response body: %w", err)).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			NetworkContext(url, c.defaultTimeout).
			Build()
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, errors.Newf("response body exceeds %d bytes", c.maxBodyBytes).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			NetworkContext(url, c.defaultTimeout).
			Build()
	}

	return body, nil
}

// SetBeforeRequestHook sets a function to be called before each request.
// Safe to call concurrently with Do() and other hook setters.
func (c *Client) SetBeforeRequestHook(fn func(*http.Request)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.beforeRequest = fn
}

// SetAfterResponseHook sets a function to be called after each request.
// Safe to call concurrently with Do() and other hook setters.
func (c *Client) SetAfterResponseHook(fn func(*http.Request, *http.Response, error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// Close closes idle connections in the connection pool.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
