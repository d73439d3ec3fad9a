package crm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrNotFound indicates the requested CRM resource does not exist.
	ErrNotFound = errors.New("CRM resource not found")

	// ErrAuthFailed indicates the CRM rejected our credentials. Never retried.
	ErrAuthFailed = errors.New("CRM authentication failed")
)

// RateLimitedError indicates the CRM returned HTTP 429. RetryAfter carries
// the server-provided wait, zero when the header was absent or unparseable.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("CRM rate limited, retry after %s", e.RetryAfter)
	}
	return "CRM rate limited"
}

// APIError is returned for CRM HTTP responses outside the dedicated
// taxonomy (not found, rate limited, auth). Transient() distinguishes
// retryable server-side failures from permanent client errors.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("CRM returned HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("CRM returned HTTP %d", e.StatusCode)
}

// Transient reports whether the failure is worth retrying.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusRequestTimeout || e.StatusCode >= 500
}

// classifyStatus maps an HTTP status to the package error taxonomy.
// Returns nil for 2xx.
func classifyStatus(status int, body string, retryAfter time.Duration) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: retryAfter}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthFailed
	default:
		return &APIError{StatusCode: status, Body: body}
	}
}

// retryAfterFrom extracts the server-provided wait from a rate-limit error.
// Returns zero for every other error kind.
func retryAfterFrom(err error) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// retryable reports whether the error may succeed on a later attempt.
// Network-level failures (no *APIError involved) are treated as transient.
func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuthFailed) {
		return false
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return true
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.Transient()
	}
	return true
}
