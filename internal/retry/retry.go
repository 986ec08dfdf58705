// Package retry runs an operation until it succeeds, a permanent error is
// returned, or the retry budget is spent. Policies are values so callers can
// inject a zero-delay policy in tests.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/cbout22/ghdir/internal/gateway"
)

// Defaults used by the CLI.
const (
	DefaultRetries  = 5
	DefaultInitial  = time.Second
	DefaultMaxDelay = 30 * time.Second
)

// Attempt describes one failed try.
type Attempt struct {
	Number      int // 1-based
	RetriesLeft int
	Err         error
}

// Policy decides how often and how far apart an operation is retried.
type Policy interface {
	// Do runs op until it succeeds or the policy gives up. observe, when not
	// nil, is called after every failed attempt. Attempts never overlap.
	Do(ctx context.Context, op func(ctx context.Context) error, observe func(Attempt)) error
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error // last attempt's error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Exponential retries with exponentially growing, jittered delays.
type Exponential struct {
	Retries  int
	Initial  time.Duration
	MaxDelay time.Duration
}

// NewExponential returns an Exponential policy with the default delays.
func NewExponential(retries int) Exponential {
	return Exponential{Retries: retries, Initial: DefaultInitial, MaxDelay: DefaultMaxDelay}
}

// Do implements Policy.
func (e Exponential) Do(ctx context.Context, op func(ctx context.Context) error, observe func(Attempt)) error {
	b := backoff.NewExponentialBackOff()
	if e.Initial > 0 {
		b.InitialInterval = e.Initial
	}
	if e.MaxDelay > 0 {
		b.MaxInterval = e.MaxDelay
	}
	return run(ctx, b, e.Retries, op, observe)
}

// Fixed retries with a constant delay. A zero Delay retries immediately.
type Fixed struct {
	Retries int
	Delay   time.Duration
}

// Do implements Policy.
func (f Fixed) Do(ctx context.Context, op func(ctx context.Context) error, observe func(Attempt)) error {
	return run(ctx, backoff.NewConstantBackOff(f.Delay), f.Retries, op, observe)
}

// Stop marks err as not worth retrying.
func Stop(err error) error {
	return backoff.Permanent(err)
}

// Permanent reports whether retrying err cannot help: cancellation, a
// rejected token, an exhausted rate limit, or an error wrapped with Stop.
func Permanent(err error) bool {
	var (
		perm *backoff.PermanentError
		auth gateway.AuthenticationError
		rl   gateway.RateLimitError
	)
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &perm) ||
		errors.As(err, &auth) ||
		errors.As(err, &rl)
}

func run(ctx context.Context, b backoff.BackOff, retries int, op func(ctx context.Context) error, observe func(Attempt)) error {
	if retries < 0 {
		retries = 0
	}
	maxTries := retries + 1

	var (
		attempts  int
		lastErr   error
		permanent bool
	)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := op(ctx)
		if err == nil {
			return struct{}{}, nil
		}

		// The Stop wrapper is dropped before reporting, so classify first.
		var perm *backoff.PermanentError
		stopped := errors.As(err, &perm)
		if stopped {
			err = perm.Unwrap()
		}
		lastErr = err
		permanent = stopped || Permanent(err) || ctx.Err() != nil

		left := maxTries - attempts
		if permanent {
			left = 0
		}
		if observe != nil {
			observe(Attempt{Number: attempts, RetriesLeft: left, Err: err})
		}
		if permanent {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(maxTries)),
	)
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return context.Cause(ctx)
	case permanent:
		return lastErr
	case lastErr == nil:
		return err
	default:
		return &ExhaustedError{Attempts: attempts, Err: lastErr}
	}
}
