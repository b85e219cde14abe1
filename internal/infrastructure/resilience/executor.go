// Package resilience retries transient infrastructure failures and trips a
// per-operation circuit breaker when an operation keeps failing.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// TransientClassifier retries and records errors matched by isTransient.
// Other errors are recorded once and never retried.
func TransientClassifier(isTransient func(error) bool) ErrorClassifier {
	return func(err error) ErrorClassification {
		if isTransient != nil && isTransient(err) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

// Executor runs infrastructure calls under the policy of their backend, with
// one breaker per operation name. Caller mistakes never count against a
// breaker: context cancellation and the not-found, invalid-input and
// duplicate-id kinds pass straight through.
type Executor struct {
	cfg     Config
	onRetry func(operation string)

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// OnRetry registers a hook invoked before every retry attempt.
func (e *Executor) OnRetry(hook func(operation string)) {
	e.onRetry = hook
}

// Execute runs fn. An open circuit surfaces as domain.ErrTemporary.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	classify := e.withCallerErrors(classifier)
	policy := e.cfg.For(op)

	if !policy.BreakerEnabled {
		return e.retry(ctx, op, policy, fn, classify)
	}

	_, err := e.breaker(op, policy, classify).Execute(func() (any, error) {
		return nil, e.retry(ctx, op, policy, fn, classify)
	})
	if IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return err
}

func (e *Executor) withCallerErrors(classifier ErrorClassifier) ErrorClassifier {
	if classifier == nil {
		classifier = TransientClassifier(nil)
	}
	return func(err error) ErrorClassification {
		switch {
		case err == nil:
			return ErrorClassification{}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ErrorClassification{}
		case domain.IsKind(err, domain.ErrClaimNotFound),
			domain.IsKind(err, domain.ErrInvalidInput),
			domain.IsKind(err, domain.ErrDuplicateID):
			return ErrorClassification{}
		}
		return classifier(err)
	}
}

func (e *Executor) retry(
	ctx context.Context,
	operation string,
	policy Policy,
	fn func(context.Context) error,
	classify ErrorClassifier,
) error {
	backoff := policy.RetryInitialBackoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !classify(err).Retryable || attempt >= policy.RetryMaxAttempts {
			return err
		}

		wait := min(backoff, policy.RetryMaxBackoff)
		slog.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", policy.RetryMaxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)
		if e.onRetry != nil {
			e.onRetry(operation)
		}

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
		backoff = min(time.Duration(float64(backoff)*policy.RetryMultiplier), policy.RetryMaxBackoff)
	}
}

func (e *Executor) breaker(operation string, policy Policy, classify ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        operation,
		MaxRequests: policy.BreakerHalfOpenMaxCalls,
		Timeout:     policy.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= policy.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = cb
	return cb
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
