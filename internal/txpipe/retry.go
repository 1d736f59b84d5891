// =================================
// File: internal/txpipe/retry.go
// =================================
package txpipe

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryWithBackoff runs op up to maxAttempts times with exponential delays
// between failed attempts: baseDelay, 2×baseDelay, 4×baseDelay, … No delay
// precedes the first attempt. retryable decides whether an error deserves
// another try; everything else stops the loop immediately. notify, if
// non-nil, observes each backoff delay as it is scheduled.
//
// Every mutating operation goes through this one combinator rather than
// hand-rolled retry loops.
func RetryWithBackoff[T any](
	ctx context.Context,
	op func() (T, error),
	maxAttempts uint,
	baseDelay time.Duration,
	retryable func(error) bool,
	notify backoff.Notify,
) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = baseDelay << 8

	wrapped := func() (T, error) {
		value, err := op()
		if err == nil {
			return value, nil
		}
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return value, err
		}
		if !retryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxAttempts),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}
	return backoff.Retry(ctx, wrapped, opts...)
}
