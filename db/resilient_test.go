package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyKV wraps a MemKV and fails every operation a set number of
// times before letting it through.
type flakyKV struct {
	inner      *MemKV
	failures   int
	failWrites bool // fail every Set regardless of failures
	getCalls   int
	scanCalls  int
	setCalls   int
}

var errBlip = errors.New("backend blip")

func (f *flakyKV) Get(ctx context.Context, key string) (string, error) {
	f.getCalls++
	if f.failures > 0 {
		f.failures--
		return "", errBlip
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyKV) GetByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	f.scanCalls++
	if f.failures > 0 {
		f.failures--
		return nil, errBlip
	}
	return f.inner.GetByPrefix(ctx, prefix)
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	f.setCalls++
	if f.failWrites {
		return errBlip
	}
	if f.failures > 0 {
		f.failures--
		return errBlip
	}
	return f.inner.Set(ctx, key, value)
}

func newFlaky(failures int) *flakyKV {
	return &flakyKV{inner: InitMemKV(), failures: failures}
}

func fastResilient(kv KV) *Resilient {
	return NewResilientWithSchedule(kv, 3, time.Millisecond)
}

func TestSafeGetFallsBackWhenExhausted(t *testing.T) {
	kv := newFlaky(100)
	store := fastResilient(kv)
	val := store.SafeGet(context.Background(), "newsletter:a@b.com", "fallback")
	if val != "fallback" {
		t.Errorf("expected fallback value, got %q", val)
	}
	if kv.getCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", kv.getCalls)
	}
}

func TestSafeGetMissingKeyIsNotRetried(t *testing.T) {
	kv := newFlaky(0)
	store := fastResilient(kv)
	val := store.SafeGet(context.Background(), "newsletter:ghost@x.com", "")
	if val != "" {
		t.Errorf("expected empty fallback, got %q", val)
	}
	if kv.getCalls != 1 {
		t.Errorf("a missing key should not be retried, got %d attempts", kv.getCalls)
	}
}

func TestSafeGetRecoversFromTransientFailure(t *testing.T) {
	kv := newFlaky(2)
	kv.inner.Set(context.Background(), "k", "v")
	store := fastResilient(kv)
	val := store.SafeGet(context.Background(), "k", "fallback")
	if val != "v" {
		t.Errorf("expected stored value after retries, got %q", val)
	}
	if kv.getCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", kv.getCalls)
	}
}

func TestSafeGetByPrefixDegrades(t *testing.T) {
	store := fastResilient(newFlaky(100))
	pairs, degraded := store.SafeGetByPrefix(context.Background(), "newsletter:")
	if !degraded {
		t.Error("expected the degraded flag on backend exhaustion")
	}
	if len(pairs) != 0 {
		t.Errorf("expected an empty result, got %d pairs", len(pairs))
	}
}

func TestSafeGetByPrefixHealthy(t *testing.T) {
	kv := newFlaky(0)
	kv.inner.Set(context.Background(), "newsletter:a@b.com", "1")
	kv.inner.Set(context.Background(), "other:key", "2")
	store := fastResilient(kv)
	pairs, degraded := store.SafeGetByPrefix(context.Background(), "newsletter:")
	if degraded {
		t.Error("unexpected degraded flag")
	}
	if len(pairs) != 1 {
		t.Errorf("expected 1 pair under the prefix, got %d", len(pairs))
	}
}

func TestSafeSetReportsFailure(t *testing.T) {
	store := fastResilient(newFlaky(100))
	if store.SafeSet(context.Background(), "k", "v") {
		t.Error("expected SafeSet to report failure")
	}
}

func TestSetPropagatesLastError(t *testing.T) {
	store := fastResilient(newFlaky(100))
	err := store.Set(context.Background(), "k", "v")
	if !errors.Is(err, errBlip) {
		t.Errorf("expected the backend error to propagate, got %v", err)
	}
}
