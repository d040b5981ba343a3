// Package retry wraps provider calls in a bounded retry loop. Failures
// are retried on a fixed or exponential schedule; a null result and a
// cancelled context are terminal and returned immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"txaudit/internal/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
)

// Policy controls how many attempts are made and how long to wait
// between them. A Multiplier above 1 switches the schedule from a
// fixed delay to exponential growth capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	return p
}

func (p Policy) schedule() backoff.BackOff {
	if p.Multiplier > 1 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Delay
		exp.Multiplier = p.Multiplier
		exp.RandomizationFactor = 0
		exp.MaxElapsedTime = 0
		if p.MaxDelay > 0 {
			exp.MaxInterval = p.MaxDelay
		}
		exp.Reset()
		return exp
	}
	return backoff.NewConstantBackOff(p.Delay)
}

// ProviderError reports that an operation kept failing until the
// attempt budget ran out. It wraps the last underlying error.
type ProviderError struct {
	Provider string
	Op       string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s failed after %d attempt(s): %v", e.Provider, e.Op, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SleepFunc waits for the given duration or until ctx is done. Tests
// substitute a fake so retry schedules run without wall-clock time.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the real clock used between attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// WithOnRetry registers a callback invoked before each re-attempt,
// after attempt number attempt failed with err.
func WithOnRetry(fn func(provider, op string, attempt int, err error)) Option {
	return func(e *Executor) { e.onRetry = fn }
}

// Executor runs operations under one retry policy. It is safe for
// concurrent use.
type Executor struct {
	policy  Policy
	sleep   SleepFunc
	onRetry func(provider, op string, attempt int, err error)
}

// NewExecutor builds an Executor for the given policy.
func NewExecutor(policy Policy, opts ...Option) *Executor {
	e := &Executor{policy: policy.withDefaults(), sleep: sleepContext}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the normalized policy the executor runs under.
func (e *Executor) Policy() Policy { return e.policy }

// Do invokes fn until it succeeds, returns domain.ErrNotFound, the
// context ends, or the attempt budget is exhausted. Exhaustion is
// reported as a *ProviderError wrapping the last error; cancellation
// is reported as the context's own error so callers can tell an
// aborted audit from a failed provider.
func (e *Executor) Do(ctx context.Context, provider, op string, fn func(context.Context) error) error {
	schedule := e.policy.schedule()
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts = attempt
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrNotFound) {
			return lastErr
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return lastErr
		}
		if attempt == e.policy.MaxAttempts {
			break
		}
		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		slog.Warn("provider call failed, retrying",
			"provider", provider,
			"op", op,
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"delay", delay,
			"error", lastErr)
		if e.onRetry != nil {
			e.onRetry(provider, op, attempt, lastErr)
		}
		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return &ProviderError{Provider: provider, Op: op, Attempts: attempts, Err: lastErr}
}
