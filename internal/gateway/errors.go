package gateway

import (
	"fmt"
	"time"
)

// AuthenticationError is returned when GitHub rejects the supplied token.
type AuthenticationError struct{}

// Error implements the error interface.
func (e AuthenticationError) Error() string {
	return "invalid token"
}

// RateLimitError is returned when the API quota is exhausted.
type RateLimitError struct {
	Reset   time.Time // Zero when GitHub did not report a reset time
	Minutes int       // Rounded up wait until Reset
}

// Error implements the error interface.
func (e RateLimitError) Error() string {
	msg := "GitHub API rate limit exceeded."
	if !e.Reset.IsZero() {
		unit := "minutes"
		if e.Minutes == 1 {
			unit = "minute"
		}
		msg += fmt.Sprintf(" Rate limit will reset in approximately %d %s.", e.Minutes, unit)
	}
	return msg + " Try using a personal access token with --token."
}

// AccessForbiddenError is a 403 that is not caused by rate limiting.
type AccessForbiddenError struct {
	Body string
}

// Error implements the error interface.
func (e AccessForbiddenError) Error() string {
	return fmt.Sprintf("GitHub API access forbidden: %s", e.Body)
}

// FetchError wraps a transport-level failure (DNS, TLS, connection reset).
type FetchError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error {
	return e.Err
}
