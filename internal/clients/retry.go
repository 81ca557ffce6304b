package clients

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the base duration for backoff on HTTP 429 responses when
// the upstream sends no Retry-After header. Tests override this to avoid
// real sleeps.
var RetryBaseDelay = 1 * time.Second

const defaultMaxRetries = 2

// DoWithRetry executes an HTTP request and retries on HTTP 429, honouring the
// Retry-After header when present and falling back to exponential backoff
// (RetryBaseDelay doubling each attempt). After exhausting retries the last
// 429 response is returned so the caller can surface the rate-limit error.
// If the context is cancelled during a wait the function returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	backoff := RetryBaseDelay
	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			wait = d
		}
		backoff *= 2

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// parseRetryAfter reads a Retry-After header in delay-seconds form.
func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// RetryAfterOrDefault converts a 429 response into the duration callers
// should back off: the Retry-After header when present, RetryBaseDelay
// otherwise.
func RetryAfterOrDefault(resp *http.Response) time.Duration {
	if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
		return d
	}
	return RetryBaseDelay
}
