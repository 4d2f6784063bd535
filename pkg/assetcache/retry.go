package assetcache

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how hard the cache tries to load one asset.
type RetryPolicy struct {
	// MaxAttempts counts the first try.
	MaxAttempts int
	// BaseDelay scales the wait before each retry: attempt n (0-based)
	// waits n*BaseDelay.
	BaseDelay time.Duration
	// AttemptTimeout caps a single attempt. Zero means no cap.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy is three attempts with 1s linear backoff.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	BaseDelay:      time.Second,
	AttemptTimeout: 10 * time.Second,
}

// Delay returns the wait before attempt n.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.BaseDelay
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// linearBackOff yields BaseDelay, 2*BaseDelay, ...
type linearBackOff struct {
	policy  RetryPolicy
	attempt int
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.policy.Delay(b.attempt)
}

// Do runs op until it succeeds, returns a Permanent error, or the attempts
// run out. Each attempt gets its own deadline derived from ctx. notify is
// called before every wait and may be nil.
func Do[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error), notify func(attempt int, err error, wait time.Duration)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	n := 0
	operation := func() (T, error) {
		n++
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}
		return op(attemptCtx)
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(&linearBackOff{policy: p}),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			notify(n, err, wait)
		}))
	}
	return backoff.Retry(ctx, operation, opts...)
}
