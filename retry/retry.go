// Package retry runs idempotent operations with bounded retries and
// exponential backoff.
package retry

import (
	"context"
	"log"
	"time"
)

// Default retry schedule. Three attempts with a 100ms base delay waits
// 100ms then 200ms between attempts, so an exhausted operation adds at
// most 300ms of backoff latency.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
)

// Op is a single retryable operation. It must be safe to re-execute,
// since it may run multiple times with partial side effects from
// earlier attempts.
type Op[T any] func() (T, error)

// Do runs op with the default schedule. See DoN.
func Do[T any](ctx context.Context, name string, op Op[T]) (T, error) {
	return DoN(ctx, name, DefaultMaxAttempts, DefaultBaseDelay, op)
}

// DoN runs op up to maxAttempts times, waiting baseDelay * 2^i after
// failed attempt i. It returns the first successful result immediately.
// Every failure is retried identically; there is no classification of
// retryable versus permanent errors, so callers should reserve this for
// operations where failure is expected to be transient. On exhaustion
// the error from the last attempt is returned; earlier errors are only
// logged. A context canceled during backoff ends the loop with ctx.Err().
func DoN[T any](ctx context.Context, name string, maxAttempts int, baseDelay time.Duration, op Op[T]) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}
		lastErr = err
		if attempt < maxAttempts-1 {
			delay := baseDelay * time.Duration(1<<attempt)
			log.Printf("%s failed (attempt %d/%d), retrying in %v: %v",
				name, attempt+1, maxAttempts, delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}
