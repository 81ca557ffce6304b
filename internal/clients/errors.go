// Package clients holds the shared pieces of the upstream adapters: the
// error taxonomy and the concurrency gate each adapter sits behind.
package clients

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitedError is returned for 429 responses. Callers should back off for
// RetryAfter rather than failing the user when cached or partial data exists.
type RateLimitedError struct {
	Adapter    string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Adapter, e.RetryAfter)
}

// ServiceError is returned for any non-2xx, non-404 upstream response.
type ServiceError struct {
	Adapter    string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: upstream returned status %d", e.Adapter, e.StatusCode)
}

// IsRateLimited reports whether err is a rate-limit error and returns the
// retry-after duration when it is.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsUnavailable reports whether err is an upstream service error.
func IsUnavailable(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
