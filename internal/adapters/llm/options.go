package llm

import (
	"net/http"
	"time"

	"github.com/okian/artemis/pkg/logger"
)

// Option applies a configuration option to the client.
type Option func(*chatClient)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *chatClient) { c.apiKey = key }
}

// WithTimeout bounds a whole Complete call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *chatClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a failed call is retried.
func WithMaxRetries(n int) Option {
	return func(c *chatClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *chatClient) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l logger.Logger) Option {
	return func(c *chatClient) {
		if l != nil {
			c.log = l
		}
	}
}
