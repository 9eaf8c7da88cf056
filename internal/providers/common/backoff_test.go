package common

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithBackoffSucceedsAfterRetries(t *testing.T) {
	calls := 0
	var delays []time.Duration
	sleep := func(ctx context.Context, d time.Duration) bool {
		delays = append(delays, d)
		return true
	}

	answer := withBackoff(context.Background(), 4, time.Second, func(ctx context.Context) Attempt {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return OK(&ProviderAnswer{Text: "hello"})
	}, sleep)

	if answer == nil || answer.Text != "hello" {
		t.Fatalf("answer = %v, want success payload", answer)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly 3 attempts", calls)
	}
	if len(delays) != 2 {
		t.Fatalf("delays = %v, want 2 inter-attempt sleeps", delays)
	}
	for i := 1; i < len(delays); i++ {
		if delays[i] < delays[i-1] {
			t.Errorf("delays not non-decreasing: %v", delays)
		}
	}
}

func TestWithBackoffExhaustionReturnsNil(t *testing.T) {
	calls := 0
	answer := withBackoff(context.Background(), 4, time.Millisecond, func(ctx context.Context) Attempt {
		calls++
		return Retryable(errors.New("still down"))
	}, func(ctx context.Context, d time.Duration) bool { return true })

	if answer != nil {
		t.Errorf("answer = %v, want nil after exhaustion", answer)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want maxAttempts", calls)
	}
}

func TestWithBackoffFatalShortCircuits(t *testing.T) {
	calls := 0
	answer := withBackoff(context.Background(), 4, time.Millisecond, func(ctx context.Context) Attempt {
		calls++
		return Fatal(errors.New("bad credentials"))
	}, func(ctx context.Context, d time.Duration) bool { return true })

	if answer != nil {
		t.Errorf("answer = %v, want nil for fatal failure", answer)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (fatal must not retry)", calls)
	}
}

func TestWithBackoffDelayCapped(t *testing.T) {
	var delays []time.Duration
	withBackoff(context.Background(), 8, time.Second, func(ctx context.Context) Attempt {
		return Retryable(errors.New("x"))
	}, func(ctx context.Context, d time.Duration) bool {
		delays = append(delays, d)
		return true
	})

	for _, d := range delays {
		if d > maxBackoffDelay {
			t.Errorf("delay %v exceeds cap %v", d, maxBackoffDelay)
		}
	}
}

func TestWithBackoffCancelledContext(t *testing.T) {
	calls := 0
	answer := withBackoff(context.Background(), 4, time.Millisecond, func(ctx context.Context) Attempt {
		calls++
		return Retryable(errors.New("x"))
	}, func(ctx context.Context, d time.Duration) bool { return false })

	if answer != nil {
		t.Error("cancelled sleep should abort with nil answer")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancelled sleep", calls)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected AttemptStatus
	}{
		{400, AttemptFatal},
		{401, AttemptFatal},
		{403, AttemptFatal},
		{429, AttemptRetry},
		{500, AttemptRetry},
		{503, AttemptRetry},
		{504, AttemptRetry},
		{418, AttemptRetry},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(tt.code); got != tt.expected {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

func TestPauseReturnsEarlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if Pause(ctx, 5*time.Second) {
		t.Error("Pause on a cancelled context should report false")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Pause did not return promptly, took %s", elapsed)
	}
}
