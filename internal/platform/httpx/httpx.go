// Package httpx holds the retry policy shared by the provider adapters.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// StatusError attaches an HTTP status to a provider error so the retry policy can
// inspect it without knowing the SDK's error types.
type StatusError struct {
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return "http status " + strconv.Itoa(e.Status)
	}
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error        { return e.Err }
func (e *StatusError) HTTPStatusCode() int { return e.Status }

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether another attempt could succeed. Cancellation of
// the caller's context is never retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// RetryAfterDuration reads Retry-After (seconds) from resp, capped at max.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

// Backoff returns the wait before the next attempt: the error's Retry-After when it
// carries one, else fallback, capped at max and jittered by 20%.
func Backoff(err error, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		sleepFor = se.RetryAfter
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return JitterSleep(sleepFor)
}

func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
