package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrMaxRetriesExceeded is returned when no attempt produced a result or a terminal error.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
)

// Retrier retries operations that fail with a retryable error, waiting
// min(BaseDelay*2^attempt, MaxDelay) between attempts.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable decides whether a failure may be retried. Defaults to IsRateLimited.
	Retryable func(error) bool

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a Retrier with the default policy: 3 attempts, 1s base, 30s cap,
// retrying only rate-limited failures.
func NewRetrier() *Retrier {
	return &Retrier{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		Retryable:   IsRateLimited,
	}
}

// Delay returns the wait before the retry that follows the given (1-based) attempt.
func (r *Retrier) Delay(attempt int) time.Duration {
	base, limit := r.BaseDelay, r.MaxDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	if limit <= 0 {
		limit = defaultMaxDelay
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return delay
}

// Retry invokes op once per attempt until it succeeds, fails with a non-retryable error,
// or the attempts run out. The last error is returned unchanged.
func Retry[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		r = NewRetrier()
	}
	retryable := r.Retryable
	if retryable == nil {
		retryable = IsRateLimited
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) || attempt == r.MaxAttempts {
			return zero, err
		}

		delay := r.Delay(attempt)
		slog.Warn("rate limited, retrying",
			"attempt", attempt,
			"max_attempts", r.MaxAttempts,
			"delay", delay,
			"error", err)
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, ErrMaxRetriesExceeded
}

// Do is Retry for operations without a result value.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Retry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
