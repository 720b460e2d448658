package api

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
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/storefront/pkg/cache"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// DefaultBaseURL is the backend location used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api"

// Cache tags. A GET provides tags, a mutation invalidates them.
const (
	TagProduct  = "Product"
	TagCart     = "Cart"
	TagCategory = "Category"
	TagAuth     = "Auth"
	TagVariant  = "Variant"
	TagOrder    = "Order"
	TagAddress  = "Address"
	TagReview   = "Review"
)

const maxErrorBody = 4 << 10

// TokenSource yields the bearer token for outgoing requests.
// An empty token sends the request unauthenticated.
type TokenSource interface {
	ActiveToken(ctx context.Context) string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) string

func (f TokenSourceFunc) ActiveToken(ctx context.Context) string { return f(ctx) }

// Client talks to the storefront REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	cache   *cache.Cache[[]byte]
	log     *slog.Logger

	// generation counts invalidations. A read started before one does not
	// populate the cache.
	generation atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Timeouts are whatever that client defines.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTokenSource sets the request signer.
func WithTokenSource(ts TokenSource) Option {
	return func(cl *Client) { cl.tokens = ts }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// WithCache sets the capacity of the read cache.
func WithCache(capacity int) Option {
	return func(cl *Client) { cl.cache = cache.New[[]byte](capacity) }
}

// WithoutCache disables the read cache; every read hits the network.
func WithoutCache() Option {
	return func(cl *Client) { cl.cache = nil }
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		cache:   cache.New[[]byte](256),
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Invalidate drops cached reads carrying any of tags.
func (c *Client) Invalidate(tags ...string) {
	c.generation.Add(1)
	if c.cache != nil {
		c.cache.Invalidate(tags...)
	}
}

type call struct {
	method      string
	path        string
	body        any
	provides    []string
	invalidates []string

	// revalidate skips the cached copy; the fresh body still replaces it.
	revalidate bool
}

// do executes a call and decodes the response into out when out is non-nil
// and the response has a body. It reports whether a body was present.
func (c *Client) do(ctx context.Context, cl call, out any) (bool, error) {
	token := ""
	if c.tokens != nil {
		token = c.tokens.ActiveToken(ctx)
	}

	cacheKey := token + " " + cl.method + " " + cl.path
	cacheable := cl.method == http.MethodGet && c.cache != nil
	if cacheable && !cl.revalidate {
		if data, ok := c.cache.Get(cacheKey); ok {
			return decode(data, out, cl)
		}
	}

	if len(cl.invalidates) > 0 {
		// Invalidate after the call settles, success or not: a failed
		// mutation may still have been applied server-side.
		defer c.Invalidate(cl.invalidates...)
	}

	gen := c.generation.Load()
	data, err := c.send(ctx, cl, token)
	if err != nil {
		return false, err
	}

	if cacheable && c.generation.Load() == gen {
		c.cache.Put(cacheKey, data, cl.provides...)
	}
	return decode(data, out, cl)
}

func (c *Client) send(ctx context.Context, cl call, token string) ([]byte, error) {
	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("api: encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+"/"+strings.TrimLeft(cl.path, "/"), body)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.DebugContext(ctx, "backend request failed",
			logger.Endpoint(cl.method, cl.path), logger.Error(err))
		return nil, errors.Join(ErrTransport, err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "backend request",
		logger.Endpoint(cl.method, cl.path),
		logger.Status(resp.StatusCode),
		logger.Duration(time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Method:     cl.method,
			Path:       cl.path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	return data, nil
}

func decode(data []byte, out any, cl call) (bool, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, errors.Join(ErrDecode, fmt.Errorf("%s %s: %w", cl.method, cl.path, err))
	}
	return true, nil
}

// errorMessage pulls a human message out of an error body.
func errorMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}
