package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// DefaultMaxAttempts is how many frames are sampled per logical read.
	DefaultMaxAttempts = 10
	// DefaultRetryDelay is the pause between two sampled frames.
	DefaultRetryDelay = 100 * time.Millisecond
)

// RetryPolicy bounds how many read-and-validate cycles make up one logical read. Serial streams
// are not frame aligned when opened, so a reader simply resamples until a frame validates.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Clock drives the inter-attempt delay. Nil means the wall clock.
	Clock clock.Clock
}

// DefaultRetryPolicy returns the policy used when nothing else is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

// Do calls fn until it succeeds, it returns an error that is not transient, or MaxAttempts
// transient failures happened. In the last case the returned error wraps both ErrReadTimeout
// and the final cause. Cancelling ctx stops between attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts || p.Delay <= 0 {
			continue
		}

		timer := clk.Timer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return &TimeoutError{Attempts: attempts, Last: lastErr}
}

// TimeoutError is returned by RetryPolicy.Do after every attempt failed.
type TimeoutError struct {
	Attempts int
	Last     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrReadTimeout, e.Attempts, e.Last)
}

// Is makes errors.Is(err, ErrReadTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrReadTimeout
}

// Unwrap returns the cause of the last failed attempt.
func (e *TimeoutError) Unwrap() error {
	return e.Last
}
