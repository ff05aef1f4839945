package azure

import (
	"fmt"
	"time"
)

// ThrottleError is returned when the provider keeps answering 429 until the
// retry ceiling is exhausted. RetryAfter carries the last server-specified
// delay so callers can schedule a later run.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("rate limited - retry after %s", e.RetryAfter)
}

// ConnectorError wraps a transient network failure that survived every retry.
type ConnectorError struct {
	Attempts int
	Err      error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("network error after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// HTTPError is a non-success response that is either not retriable or has
// exhausted its retries.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.StatusCode)
}
