package db

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/electmap/newsletter-backend/retry"
)

// Resilient wraps a KV with retries and degrade-gracefully semantics.
//
// Reads never propagate backend errors to the caller: once retries are
// exhausted they log and fall back to "no data", since a degraded
// response is preferable to failing the whole request over a backend
// blip. Writes report success explicitly so callers can decide how to
// react.
type Resilient struct {
	kv          KV
	maxAttempts int
	baseDelay   time.Duration
}

// NewResilient wraps kv with the default retry schedule.
func NewResilient(kv KV) *Resilient {
	return NewResilientWithSchedule(kv, retry.DefaultMaxAttempts, retry.DefaultBaseDelay)
}

// NewResilientWithSchedule wraps kv with an explicit retry schedule.
func NewResilientWithSchedule(kv KV, maxAttempts int, baseDelay time.Duration) *Resilient {
	return &Resilient{kv: kv, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

// SafeGet returns the value under key, or fallback if the key is absent
// or the backend could not be reached after retries. A missing key is
// not retried.
func (r *Resilient) SafeGet(ctx context.Context, key, fallback string) string {
	val, err := retry.DoN(ctx, "kv get "+key, r.maxAttempts, r.baseDelay, func() (string, error) {
		v, err := r.kv.Get(ctx, key)
		if errors.Is(err, ErrNoRecord) {
			return fallback, nil
		}
		return v, err
	})
	if err != nil {
		log.Printf("kv get %s degraded to fallback: %v", key, err)
		return fallback
	}
	return val
}

// SafeGetByPrefix returns every pair under prefix. On exhaustion it
// returns an empty map with degraded set, so callers can tell "empty
// because no data" from "empty because the backend could not be
// reached" while still serving the same empty result.
func (r *Resilient) SafeGetByPrefix(ctx context.Context, prefix string) (pairs map[string]string, degraded bool) {
	pairs, err := retry.DoN(ctx, "kv scan "+prefix, r.maxAttempts, r.baseDelay, func() (map[string]string, error) {
		return r.kv.GetByPrefix(ctx, prefix)
	})
	if err != nil {
		log.Printf("kv scan %s degraded to empty result: %v", prefix, err)
		return map[string]string{}, true
	}
	return pairs, false
}

// SafeSet writes value under key, reporting success rather than raising.
func (r *Resilient) SafeSet(ctx context.Context, key, value string) bool {
	if err := r.Set(ctx, key, value); err != nil {
		log.Printf("kv set %s failed after retries: %v", key, err)
		return false
	}
	return true
}

// Set writes value under key with retries, propagating the last error
// on exhaustion. Critical-path writes use this directly so that write
// failures surface to the caller instead of degrading silently.
func (r *Resilient) Set(ctx context.Context, key, value string) error {
	_, err := retry.DoN(ctx, "kv set "+key, r.maxAttempts, r.baseDelay, func() (struct{}, error) {
		return struct{}{}, r.kv.Set(ctx, key, value)
	})
	return err
}
