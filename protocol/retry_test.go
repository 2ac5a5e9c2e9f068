package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestRetryExactBound(t *testing.T) {
	for _, maxAttempts := range []int{1, 3, 10} {
		policy := RetryPolicy{MaxAttempts: maxAttempts}
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.Wrap(ErrShortRead, "nothing on the wire")
		})
		test.That(t, calls, test.ShouldEqual, maxAttempts)
		test.That(t, errors.Is(err, ErrReadTimeout), test.ShouldBeTrue)
		test.That(t, errors.Is(err, ErrShortRead), test.ShouldBeTrue)

		var timeoutErr *TimeoutError
		test.That(t, errors.As(err, &timeoutErr), test.ShouldBeTrue)
		test.That(t, timeoutErr.Attempts, test.ShouldEqual, maxAttempts)
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, Delay: time.Millisecond}
	failures := []error{ErrShortRead, ErrFrameInvalid, ErrChecksumMismatch}
	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= len(failures) {
			return failures[calls-1]
		}
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldEqual, 4)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10}
	gone := errors.New("device removed")
	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return gone
	})
	test.That(t, err, test.ShouldEqual, gone)
	test.That(t, calls, test.ShouldEqual, 1)
}

func TestRetryZeroAttemptsStillTriesOnce(t *testing.T) {
	calls := 0
	err := RetryPolicy{}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return ErrChecksumMismatch
	})
	test.That(t, calls, test.ShouldEqual, 1)
	test.That(t, errors.Is(err, ErrReadTimeout), test.ShouldBeTrue)
}

func TestRetryCancelDuringDelay(t *testing.T) {
	// The mock clock never advances, so the only way out of the delay is cancellation.
	policy := RetryPolicy{MaxAttempts: 5, Delay: time.Hour, Clock: clock.NewMock()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempted := make(chan struct{})
	errCh := make(chan error, 1)
	calls := 0
	go func() {
		errCh <- policy.Do(ctx, func(ctx context.Context) error {
			calls++
			close(attempted)
			return ErrShortRead
		})
	}()

	<-attempted
	cancel()
	err := <-errCh
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, calls, test.ShouldEqual, 1)
}

func TestRetryCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := DefaultRetryPolicy().Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, calls, test.ShouldEqual, 0)
}
