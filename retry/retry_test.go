package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestReturnsSuccessAfterTransientFailures(t *testing.T) {
	calls := 0
	val, err := DoN(context.Background(), "flaky op", 3, time.Millisecond, func() (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("transient failure %d", calls)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if val != "ok" {
		t.Errorf("expected \"ok\", got %q", val)
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 invocations, got %d", calls)
	}
}

func TestReturnsImmediatelyOnFirstSuccess(t *testing.T) {
	calls := 0
	val, err := DoN(context.Background(), "op", 3, time.Second, func() (int, error) {
		calls++
		return 42, nil
	})
	if err != nil || val != 42 {
		t.Errorf("expected (42, nil), got (%d, %v)", val, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
}

func TestReturnsLastErrorOnExhaustion(t *testing.T) {
	calls := 0
	_, err := DoN(context.Background(), "doomed op", 3, time.Millisecond, func() (string, error) {
		calls++
		return "", fmt.Errorf("failure %d", calls)
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if err.Error() != "failure 3" {
		t.Errorf("expected the error from the last attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
}

func TestDefaultsRunThreeAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), "doomed op", func() (string, error) {
		calls++
		return "", errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != DefaultMaxAttempts {
		t.Errorf("expected %d invocations, got %d", DefaultMaxAttempts, calls)
	}
}

func TestCanceledContextStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := DoN(ctx, "op", 3, time.Minute, func() (string, error) {
		calls++
		return "", errors.New("nope")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the loop to stop after 1 invocation, got %d", calls)
	}
}
