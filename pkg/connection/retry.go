package connection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts is the default reconnection attempt budget.
const DefaultMaxAttempts = 5

// ErrRetryBudgetExhausted indicates the attempt budget ran out without
// a successful attempt.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// Retrier runs an operation with exponential backoff until it
// succeeds, the attempt budget is exhausted, or the context is
// cancelled. Each attempt is preceded by the current backoff delay.
type Retrier struct {
	backoff     *Backoff
	maxAttempts int
	onAttempt   func(attempt int, delay time.Duration)
}

// NewRetrier creates a Retrier over the given backoff calculator.
// maxAttempts <= 0 selects DefaultMaxAttempts. The backoff is shared:
// a Retrier does not reset it on start, so delays continue from where
// previous episodes left off until an attempt succeeds.
func NewRetrier(backoff *Backoff, maxAttempts int) *Retrier {
	if backoff == nil {
		backoff = NewBackoff()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Retrier{
		backoff:     backoff,
		maxAttempts: maxAttempts,
	}
}

// MaxAttempts returns the attempt budget.
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

// OnAttempt sets a callback invoked before each attempt with the
// attempt number (1-based) and the delay about to be waited.
// Must be set before Do is called.
func (r *Retrier) OnAttempt(fn func(attempt int, delay time.Duration)) {
	r.onAttempt = fn
}

// Do runs op until it succeeds or the budget is exhausted. On success
// the backoff resets. Returns the context error if cancelled while
// waiting; otherwise ErrRetryBudgetExhausted wrapping the last failure.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		delay := r.backoff.Next()
		if r.onAttempt != nil {
			r.onAttempt(attempt, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if err := op(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		r.backoff.Reset()
		return nil
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryBudgetExhausted, r.maxAttempts, lastErr)
}
