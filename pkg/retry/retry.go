package retry

import (
	"context"
	"time"
)

// ShouldRetry decides whether a failed attempt is retried. attempt starts at 1.
type ShouldRetry func(err error, attempt int) bool

// Policy bounds the retries of a single call.
type Policy struct {
	Attempts int
	// Delay is waited before the second attempt and doubled before every later one.
	Delay time.Duration
}

// Do calls f until it succeeds, shouldRetry rejects the error, the attempts are spent or ctx is done.
// The last error is returned.
func Do[T any](ctx context.Context, policy Policy, shouldRetry ShouldRetry, f func(ctx context.Context) (T, error)) (T, error) {
	delay := policy.Delay
	attempt := 0

	for {
		res, err := f(ctx)
		if err == nil {
			return res, nil
		}

		attempt++
		if attempt >= policy.Attempts || !shouldRetry(err, attempt) {
			return res, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return res, err
		case <-timer.C:
		}
		delay *= 2
	}
}
