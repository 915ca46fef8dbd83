package tokencache

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultLockAttempts is how often a held lock is tried before giving up.
	DefaultLockAttempts = 3

	// DefaultLockDelay is the pause between lock attempts.
	DefaultLockDelay = 10 * time.Second
)

// retryPolicy retries an operation failing with errLocked a fixed number of times.
type retryPolicy struct {
	attempts int
	delay    time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: DefaultLockAttempts, delay: DefaultLockDelay}
}

// do runs op until it succeeds, fails with something other than errLocked,
// runs out of attempts (ErrLockTimeout) or ctx is done.
func (p retryPolicy) do(ctx context.Context, op func() error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.delay), uint64(attempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, errLocked) {
			return err
		}
		return backoff.Permanent(err)
	}, b)

	if errors.Is(err, errLocked) {
		return ErrLockTimeout
	}
	return err
}
