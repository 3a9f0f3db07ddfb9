// Package retry runs an operation with bounded retries and jittered
// exponential backoff, failing fast on errors that retrying cannot fix.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy configures Do. It is never mutated after construction.
type Policy struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	IsRetryable func(error) bool
}

// DefaultPolicy is 3 retries starting at 1s, capped at 5s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second, IsRetryable: IsRetryable}
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.IsRetryable == nil {
		p.IsRetryable = IsRetryable
	}
	return p
}

// Hook, when set, is called before each backoff sleep. Tests and the client's
// debug logging use it.
type Hook func(attempt int, delay time.Duration, err error)

type options struct {
	hook  Hook
	sleep func(context.Context, time.Duration) error
}

type Option func(*options)

func WithHook(h Hook) Option { return func(o *options) { o.hook = h } }

// WithSleep replaces the context-aware sleep; tests pass a no-op.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// Do calls fn until it succeeds, returns a non-retryable error, or
// p.MaxRetries retries are spent. The last error is returned unchanged.
// A context that ends during a backoff sleep stops the loop with the
// context's error.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	p = p.withDefaults()
	o := options{sleep: sleep}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		res T
		err error
	)
	for attempt := 0; ; attempt++ {
		res, err = fn(ctx)
		if err == nil {
			return res, nil
		}
		if attempt >= p.MaxRetries || ctx.Err() != nil || !p.IsRetryable(err) {
			return res, err
		}
		delay := CalculateBackoff(attempt, p.BaseDelay, p.MaxDelay)
		if o.hook != nil {
			o.hook(attempt, delay, err)
		}
		if serr := o.sleep(ctx, delay); serr != nil {
			return res, serr
		}
	}
}

// CalculateBackoff returns min(base*2^attempt, maxDelay) scaled by a random
// factor in [0.75, 1.25].
func CalculateBackoff(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}
	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(d) * jitter)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
