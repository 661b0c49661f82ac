package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/complykit/complykit/pkg/cache"
)

// Sentinel errors for HTTP operations.
var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrNetwork is returned for connection failures and non-2xx responses.
	ErrNetwork = errors.New("network error")
)

// requestTimeout bounds a single request; retries each get a fresh budget.
const requestTimeout = 30 * time.Second

// Client provides shared HTTP functionality for external service clients.
// It handles response caching, retry logic, and common request headers.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	headers map[string]string
}

// NewClient creates a Client. Pass a [cache.NullCache] to disable caching
// and nil headers if no default headers are needed.
func NewClient(c cache.Cache, headers map[string]string) *Client {
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		cache:   c,
		keyer:   cache.NewDefaultKeyer(),
		headers: headers,
	}
}

// Cached retrieves a JSON value from cache or executes fetch and caches the
// result under the namespaced key. The fetch function should populate v; on
// success, v is stored with the given TTL. Cache read and write failures are
// swallowed; the cache is an optimization, never a correctness dependency.
func (c *Client) Cached(ctx context.Context, namespace, key string, ttl time.Duration, v any, fetch func() error) error {
	cacheKey := c.keyer.HTTPKey(namespace, key)
	if data, ok, _ := c.cache.Get(ctx, cacheKey); ok {
		if json.Unmarshal(data, v) == nil {
			return nil
		}
	}
	if err := RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, cacheKey, data, ttl)
	}
	return nil
}

// GetJSON performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

// PostJSON performs an HTTP POST with a JSON request body and JSON-decodes
// the response into v.
func (c *Client) PostJSON(ctx context.Context, url string, request, v any) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return err
	}
	body, err := c.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) (io.ReadCloser, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500 || code == http.StatusTooManyRequests:
		return Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
