package llm

import (
	"context"
	"errors"
	"time"
)

var errAllAttemptsFailed = errors.New("all attempts produced an invalid result")

// retry runs op up to attempts times and returns the first result the valid
// predicate accepts. A fixed backoff separates attempts; there is no
// exponential growth because the attempt count is small by design. The
// context cancels the wait as well as the operation.
func retry[T any](ctx context.Context, attempts int, backoff time.Duration, op func(context.Context) (T, error), valid func(T) bool) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := op(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if valid(result) {
			return result, nil
		}
		lastErr = errAllAttemptsFailed
	}

	if lastErr == nil {
		lastErr = errAllAttemptsFailed
	}
	return zero, lastErr
}
