// Package retry implements a small bounded-retry policy shared by the
// catalog sync engine and provider calls.
package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts int
	// Backoff returns the delay before attempt n (1-based). A nil
	// Backoff means no delay between attempts.
	Backoff func(attempt int) time.Duration
	// Retryable reports whether err is worth another attempt. A nil
	// Retryable retries every error.
	Retryable func(err error) bool
}

// FixedBackoff returns a Backoff that always waits d.
func FixedBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// IsTransient reports whether err looks like a transient network or
// timeout failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// Do runs fn until it succeeds, the policy gives up, or ctx is
// cancelled. The last error is returned on failure.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if p.Backoff != nil {
			select {
			case <-time.After(p.Backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
