package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Outcome tells the executor how to treat one failure.
type Outcome struct {
	Retry           bool
	CountsAsFailure bool
}

// Classifier inspects an error from the wrapped call. A nil classifier means
// nothing retries and everything counts against the breaker.
type Classifier func(err error) Outcome

// Executor guards calls to one external dependency with bounded retries and
// a circuit breaker. One Executor per dependency; the name shows up in logs
// and breaker state changes.
type Executor struct {
	name    string
	policy  Policy
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[any]
}

func New(name string, policy Policy, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	policy = policy.normalize()

	e := &Executor{name: name, policy: policy, logger: logger}
	if policy.BreakerEnabled {
		e.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        name,
			MaxRequests: policy.BreakerHalfOpenCalls,
			Timeout:     policy.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < policy.BreakerMinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= policy.BreakerFailureRatio
			},
			IsSuccessful: func(err error) bool {
				var ignored *ignoredError
				return err == nil || errors.As(err, &ignored)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					"dependency", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return e
}

// Do runs fn under the policy. Breaker failure accounting follows the
// classifier, not the raw error.
func (e *Executor) Do(ctx context.Context, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil call for %s", e.name)
	}
	if classify == nil {
		classify = func(error) Outcome { return Outcome{CountsAsFailure: true} }
	}

	if e.breaker == nil {
		return e.withRetries(ctx, fn, classify)
	}

	_, err := e.breaker.Execute(func() (any, error) {
		err := e.withRetries(ctx, fn, classify)
		if err != nil && !classify(err).CountsAsFailure {
			// Hide from the breaker counts, keep for the caller.
			return nil, &ignoredError{err: err}
		}
		return nil, err
	})
	var ignored *ignoredError
	if errors.As(err, &ignored) {
		return ignored.err
	}
	return err
}

func (e *Executor) withRetries(ctx context.Context, fn func(context.Context) error, classify Classifier) error {
	backoff := e.policy.InitialBackoff

	var err error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !classify(err).Retry || attempt == e.policy.MaxAttempts {
			return err
		}

		e.logger.Warn("retrying dependency call",
			"dependency", e.name,
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"backoff", backoff.String(),
			"error", err,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * e.policy.BackoffFactor)
		if backoff > e.policy.MaxBackoff {
			backoff = e.policy.MaxBackoff
		}
	}
	return err
}

// ignoredError carries an error through gobreaker without recording it as a
// breaker failure. gobreaker has no per-error success hook on the Execute
// path, so the sentinel does the bookkeeping.
type ignoredError struct {
	err error
}

func (e *ignoredError) Error() string { return e.err.Error() }
func (e *ignoredError) Unwrap() error { return e.err }

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
