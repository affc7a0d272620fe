package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestLinearBackoffSequence(t *testing.T) {
	// Storage-stage shape: base delay, then +1s per attempt after the first.
	backoff := Linear(5*time.Second, time.Second)

	expected := []time.Duration{5 * time.Second, 6 * time.Second, 7 * time.Second}
	for i, want := range expected {
		if got := backoff(i); got != want {
			t.Errorf("Linear backoff attempt %d = %v, want %v", i, got, want)
		}
	}
}

func TestExponentialBackoffSequence(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		max     time.Duration
		attempt int
		want    time.Duration
	}{
		{"first retry", time.Second, 0, 0, time.Second},
		{"second retry", time.Second, 0, 1, 2 * time.Second},
		{"third retry", time.Second, 0, 2, 4 * time.Second},
		{"fourth retry", time.Second, 0, 3, 8 * time.Second},
		{"capped", time.Second, 5 * time.Second, 4, 5 * time.Second},
		{"cap equals value", 2 * time.Second, 4 * time.Second, 1, 4 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Exponential(tt.base, tt.max)(tt.attempt); got != tt.want {
				t.Errorf("Exponential(%v, %v)(%d) = %v, want %v", tt.base, tt.max, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var delays []time.Duration
	calls := 0

	result, err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Backoff:     Exponential(time.Second, 0),
		Sleep:       recordingSleep(&delays),
	}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if result != "ok" {
		t.Errorf("Do result = %q, want %q", result, "ok")
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}

	// Two retries happened: delays must be the exponential prefix 1s, 2s.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("recorded %d delays, want %d: %v", len(delays), len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	calls := 0
	boom := errors.New("boom")

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		Backoff:     Linear(5*time.Second, time.Second),
		Sleep:       recordingSleep(&delays),
	}, func() (int, error) {
		calls++
		return 0, boom
	})

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, boom) {
		t.Errorf("exhaustion error does not wrap the last failure: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}

	// Backoff timing per the storage stage contract: 5s then 6s.
	want := []time.Duration{5 * time.Second, 6 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("recorded delays %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	var delays []time.Duration
	fatal := errors.New("bad input")
	calls := 0

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Backoff:     Exponential(time.Second, 0),
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
		Sleep:       recordingSleep(&delays),
	}, func() (int, error) {
		calls++
		return 0, fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("expected the non-retryable error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if len(delays) != 0 {
		t.Errorf("no backoff should happen for a non-retryable error, got %v", delays)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, Policy{
		MaxAttempts: 3,
		Backoff:     Linear(time.Second, 0),
	}, func() (int, error) {
		calls++
		return 0, errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (cancellation lands before the first retry)", calls)
	}
}

func TestDoInvokesOnRetryWithAttemptNumber(t *testing.T) {
	var delays []time.Duration
	var notified []int
	calls := 0

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Second, 0),
		Sleep:       recordingSleep(&delays),
		OnRetry:     func(attempt int) { notified = append(notified, attempt) },
	}, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 1, nil
	})

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}

	// The first attempt is not a retry; the two retries report one-based
	// attempt numbers.
	want := []int{2, 3}
	if len(notified) != len(want) {
		t.Fatalf("OnRetry called with %v, want %v", notified, want)
	}
	for i := range want {
		if notified[i] != want[i] {
			t.Errorf("OnRetry[%d] = %d, want %d", i, notified[i], want[i])
		}
	}
}

func TestDoSingleAttemptDefaults(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func() (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("zero-valued policy should run exactly once, ran %d times", calls)
	}
}
