package nhtsa

import (
	"net/http"
	"time"
)

// ClientOption mutates the client instance.
type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout bounds every vPIC request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithCacheTTL sets how long make lists and decoded VINs are kept.
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) { c.cacheTTL = ttl }
}

// WithObserver reports the duration and result of every vPIC call.
func WithObserver(observe func(op string, d time.Duration, err error)) ClientOption {
	return func(c *Client) { c.observe = observe }
}
