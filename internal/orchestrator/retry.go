package orchestrator

import (
	"context"
	"time"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// RetryPolicy controls the exponential backoff applied to transient chunk
// failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}
}

// withRetry runs fn, retrying only errs.IsTransient failures with
// exponential backoff, stopping early on context cancellation (a
// cancelled run counts as Cancelled, not Transient, and must not retry).
func withRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errs.Cancelled(err)
		}
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// fn() failing while ctx is already done almost always means it
			// unblocked because of our own CancelRequest, not an independent
			// server error worth reporting as such.
			return errs.Cancelled(ctx.Err())
		}
		lastErr = err
		if !errs.IsTransient(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errs.Cancelled(ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
