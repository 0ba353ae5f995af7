// Package httpclient provides shared HTTP error types for API clients.
package httpclient

import (
	"fmt"
	"net/http"
	"time"
)

// RetryableError represents an HTTP failure that can be retried after a delay,
// typically a 429 or transient 5xx from an upstream API.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d: %s (retry after %v)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryableStatus reports whether a status code indicates a transient
// condition worth retrying.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ParseRetryAfter extracts the Retry-After header as a duration.
// Returns zero when absent or unparseable.
func ParseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
		return d
	}
	return 0
}
