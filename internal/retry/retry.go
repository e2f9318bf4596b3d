// Package retry polls for resources that become available asynchronously,
// such as an image another step is still writing to disk.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when every attempt ran without the resource
// becoming available.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy is a bounded retry with a fixed delay between attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy returns 8 attempts spaced 250ms apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 8, Delay: 250 * time.Millisecond}
}

// Poll calls fn until it reports done, returns an error, the context ends or
// the policy runs out of attempts. Attempts are numbered from 1. It returns the
// number of attempts made.
func Poll(ctx context.Context, p Policy, fn func(attempt int) (bool, error)) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		done, err := fn(attempt)
		if err != nil {
			return attempt, err
		}
		if done {
			return attempt, nil
		}
		if attempt >= maxAttempts {
			return attempt, ErrExhausted
		}

		if timer == nil {
			timer = time.NewTimer(p.Delay)
		} else {
			timer.Reset(p.Delay)
		}
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
}

// Load polls fn until it yields a value. fn reports ok=false while the value
// is not available yet.
func Load[T any](ctx context.Context, p Policy, fn func() (T, bool, error)) (T, error) {
	var value T
	_, err := Poll(ctx, p, func(int) (bool, error) {
		v, ok, err := fn()
		if ok {
			value = v
		}
		return ok, err
	})
	return value, err
}
