package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultAttempts is the number of calls made before giving up.
	DefaultAttempts = 3
	// DefaultDelay is the fixed pause between attempts.
	DefaultDelay = 10 * time.Second
	// FallbackMessage is reported when the last failure carries no message.
	FallbackMessage = "Unable to process transaction"
)

// Sleeper provides an abstraction over the delay between attempts for
// deterministic testing.
type Sleeper interface {
	// Sleep pauses for d, returning ctx's error early if ctx ends first.
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultSleeper implements Sleeper with a timer.
type DefaultSleeper struct{}

// Sleep waits for d or for ctx to end, whichever comes first.
func (DefaultSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retrier holds the fixed retry policy. Every failure is retried the same
// way: no backoff, no jitter, no error classification.
type Retrier struct {
	attempts int
	delay    time.Duration
	sleeper  Sleeper
}

// New creates a Retrier. Non-positive attempts fall back to DefaultAttempts.
func New(attempts int, delay time.Duration) *Retrier {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	return &Retrier{attempts: attempts, delay: delay, sleeper: DefaultSleeper{}}
}

// Default returns the 3 attempts / 10 seconds policy.
func Default() *Retrier {
	return New(DefaultAttempts, DefaultDelay)
}

// SetSleeper sets a custom Sleeper implementation (primarily for testing).
func (r *Retrier) SetSleeper(s Sleeper) {
	r.sleeper = s
}

// Attempts returns the configured attempt count.
func (r *Retrier) Attempts() int { return r.attempts }

// Error is returned once every attempt has failed. Its message is the last
// failure's message so callers see the node's own wording.
type Error struct {
	Attempts int
	Last     error
}

func (e *Error) Error() string {
	if e.Last == nil || e.Last.Error() == "" {
		return FallbackMessage
	}
	return e.Last.Error()
}

func (e *Error) Unwrap() error { return e.Last }

// Transaction calls fn until it succeeds or the attempts are used up, waiting
// the fixed delay between attempts but not after the last one. When every
// attempt fails and throwError is false, the zero value is returned with a
// nil error so that the caller can skip the item.
func Transaction[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error), throwError bool) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logrus.WithFields(logrus.Fields{
					"function": "Transaction",
					"attempt":  attempt + 1,
				}).Debug("Transaction succeeded after retry")
			}
			return result, nil
		}
		lastErr = err
		if attempt < r.attempts-1 {
			logRetry(attempt+1, r.attempts, err)
			if err := r.sleeper.Sleep(ctx, r.delay); err != nil {
				return zero, err
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Transaction",
		"attempts":    r.attempts,
		"error":       fmt.Sprint(lastErr),
		"throw_error": throwError,
	}).Warn("Transaction failed after all retry attempts")

	if !throwError {
		return zero, nil
	}
	return zero, &Error{Attempts: r.attempts, Last: lastErr}
}

// logRetry logs a failed attempt that will be retried.
func logRetry(attempt, of int, err error) {
	logrus.WithFields(logrus.Fields{
		"function": "Transaction",
		"attempt":  attempt,
		"of":       of,
		"error":    err.Error(),
	}).Warn("Transaction attempt failed, retrying")
}
