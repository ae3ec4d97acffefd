package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

func TestWithRetry_SucceedsWithoutRetryingOnNilError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errs.Network(errors.New("connection reset"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_StopsImmediatelyOnNonTransientError(t *testing.T) {
	calls := 0
	wantErr := errs.New(errs.KindServerError, "t", "data", errors.New("syntax error"))
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func() error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for a non-transient error)", calls)
	}
}

func TestWithRetry_ExhaustsMaxAttempts(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}, func() error {
		calls++
		return errs.Network(errors.New("still down"))
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries, got nil")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWithRetry_ContextCancelledDuringFnIsReportedAsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func() error {
		calls++
		cancel()
		return errs.New(errs.KindServerError, "t", "data", errors.New("canceling statement due to user request"))
	})
	var typed *errs.Error
	if !errors.As(err, &typed) || typed.Kind != errs.KindCancelled {
		t.Errorf("err = %v, want a cancelled error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry once ctx is done)", calls)
	}
}

func TestWithRetry_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRetry(ctx, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func() error {
		calls++
		return errs.Network(errors.New("down"))
	})
	var typed *errs.Error
	if !errors.As(err, &typed) || typed.Kind != errs.KindCancelled {
		t.Errorf("err = %v, want a cancelled error", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 (ctx already cancelled before first attempt)", calls)
	}
}
