package common

import (
	"context"
	"fmt"
	"time"
)

// maxBackoffDelay caps the exponential backoff between attempts.
const maxBackoffDelay = 10 * time.Second

// WithBackoff calls the provider up to maxAttempts times. The first attempt
// that returns an answer short-circuits. Between attempts it sleeps
// min(initialDelay * 2^attempt, 10s). A fatal attempt stops retrying
// immediately. After exhausting attempts it returns nil - never an error -
// so callers record a FailedAttempt instead of aborting the batch.
func WithBackoff(ctx context.Context, maxAttempts int, initialDelay time.Duration, call func(context.Context) Attempt) *ProviderAnswer {
	return withBackoff(ctx, maxAttempts, initialDelay, call, sleepCtx)
}

func withBackoff(ctx context.Context, maxAttempts int, initialDelay time.Duration, call func(context.Context) Attempt, sleep func(context.Context, time.Duration) bool) *ProviderAnswer {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result := call(ctx)

		if result.Status == AttemptOK && result.Answer != nil {
			return result.Answer
		}
		if result.Status == AttemptFatal {
			fmt.Printf("[WithBackoff] Fatal failure on attempt %d/%d: %v\n", attempt+1, maxAttempts, result.Err)
			return nil
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := initialDelay << uint(attempt)
		if delay > maxBackoffDelay {
			delay = maxBackoffDelay
		}
		if !sleep(ctx, delay) {
			return nil
		}
	}

	return nil
}

// Pause sleeps for the given duration unless the context is cancelled first.
// Providers use it for their rate-limit pauses so cancellation is not held up
// waiting out a pause.
func Pause(ctx context.Context, d time.Duration) bool {
	return sleepCtx(ctx, d)
}

// sleepCtx sleeps for the given duration, returning false if the context is
// cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
