// Package retry provides a bounded-retry wrapper around fallible operations.
// The policy is a plain data value so retry semantics stay inspectable and
// unit-testable independent of the wrapped operation.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"portalprobe/internal/faults"
)

// WaitKind selects how the delay between attempts grows.
type WaitKind int

const (
	WaitFixed WaitKind = iota
	WaitExponential
)

// Wait describes the delay between attempts.
type Wait struct {
	Kind WaitKind
	// Fixed delay, used when Kind is WaitFixed.
	Delay time.Duration
	// Exponential bounds, used when Kind is WaitExponential.
	Min time.Duration
	Max time.Duration
}

// Fixed waits the same duration between every attempt.
func Fixed(d time.Duration) Wait {
	return Wait{Kind: WaitFixed, Delay: d}
}

// Exponential doubles the delay each attempt, bounded by [min, max].
func Exponential(min, max time.Duration) Wait {
	return Wait{Kind: WaitExponential, Min: min, Max: max}
}

// For returns the delay to sleep after the given 1-based attempt.
func (w Wait) For(attempt int) time.Duration {
	switch w.Kind {
	case WaitExponential:
		d := w.Min << (attempt - 1)
		if d > w.Max || d < w.Min {
			d = w.Max
		}
		return d
	default:
		return w.Delay
	}
}

// Policy bounds a retried operation.
type Policy struct {
	MaxAttempts int
	Wait        Wait
	// Retryable classifies faults. Nil falls back to faults.IsTransient, so
	// only timeouts and transport-level driver faults are retried by default.
	Retryable func(error) bool
}

// DefaultPolicy is the policy used around login and search operations.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Wait:        Exponential(2*time.Second, 10*time.Second),
	}
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return faults.IsTransient(err)
}

// Do runs op up to p.MaxAttempts times. Non-retryable faults propagate on
// first occurrence. Each retry is logged with its attempt number before the
// wait, and context cancellation aborts between attempts.
func Do(ctx context.Context, p Policy, log *zap.Logger, name string, op func(context.Context) error) error {
	_, err := DoValue(ctx, p, log, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a result.
func DoValue[T any](ctx context.Context, p Policy, log *zap.Logger, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !p.retryable(err) || attempt == attempts {
			break
		}

		wait := p.Wait.For(attempt)
		log.Warn("operation failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}
	return zero, lastErr
}
