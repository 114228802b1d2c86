package harvest

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// RetryPolicy bounds the exponential backoff retry applied per fetch,
// per spec.md §4.3: "A retry schedule with exponential backoff, bounded by
// a total deadline, is applied per fetch."
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	TotalDeadline time.Duration
}

// DefaultRetryPolicy is a conservative default: five attempts, doubling
// from 500ms, bounded to two minutes total.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, TotalDeadline: 2 * time.Minute}

// Do runs fn, retrying on error with exponential backoff until
// policy.MaxAttempts is exhausted or policy.TotalDeadline elapses, or ctx is
// cancelled.
func Do(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, policy.TotalDeadline)
	defer cancel()

	var lastErr error
	delay := policy.BaseDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry deadline exceeded")
		case <-time.After(delay):
		}
		delay *= 2
	}
	return errors.Wrapf(lastErr, "exhausted %d attempts", policy.MaxAttempts)
}
