package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	errs "github.com/leo-automation/leo-ring/errors"
)

// RetryPolicy retries an operation up to MaxAttempts times in total, waiting
// Backoff(n) after the n'th failed attempt. Errors for which Retryable is false are
// returned immediately.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(error) bool
}

// DefaultRetryPolicy retries transient timeouts with a linearly increasing delay.
func DefaultRetryPolicy(attempts int, delay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		Backoff:     Linear(delay),
		Retryable:   errs.IsTimeout,
	}
}

// Linear waits n * delay after the n'th attempt.
func Linear(delay time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * delay
	}
}

// Do invokes op until it succeeds, fails with a non-retryable error, the attempts are
// exhausted or the context is cancelled. notify (if not nil) is invoked before each
// wait.
func (p RetryPolicy) Do(ctx context.Context, op func() error, notify func(attempt int, err error, wait time.Duration)) error {
	b := &linear{policy: p}

	operation := func() error {
		err := op()
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	var n backoff.Notify
	if notify != nil {
		n = func(err error, wait time.Duration) {
			notify(b.attempt, err, wait)
		}
	}

	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), n)
}

// linear adapts RetryPolicy to backoff.BackOff.
type linear struct {
	policy  RetryPolicy
	attempt int
}

func (l *linear) NextBackOff() time.Duration {
	l.attempt++
	if l.attempt >= l.policy.MaxAttempts {
		return backoff.Stop
	}

	if l.policy.Backoff == nil {
		return 0
	}

	return l.policy.Backoff(l.attempt)
}

func (l *linear) Reset() {
	l.attempt = 0
}
