package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		// Expected sequence (without jitter): 500ms, 1s, 2s, 4s, 8s, 15s, 15s...
		expected := []time.Duration{
			500 * time.Millisecond,
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			15 * time.Second,
			15 * time.Second, // Should stay at max
		}

		for i, exp := range expected {
			base := b.Current()
			_ = b.Next() // Advance

			if base != exp {
				t.Errorf("Attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()

		samples := make([]time.Duration, 10)
		for i := range samples {
			samples[i] = b.Peek()
		}

		// All samples should be within [500ms, 625ms] (25% jitter)
		for i, s := range samples {
			if s < 500*time.Millisecond || s > 625*time.Millisecond+time.Millisecond {
				t.Errorf("Sample %d: %v out of expected range [500ms, 625ms]", i, s)
			}
		}

		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical - jitter may not be working")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()

		for i := 0; i < 5; i++ {
			b.Next()
		}

		if b.Current() <= InitialBackoff {
			t.Error("Backoff should have increased")
		}

		b.Reset()

		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("ZeroConfigJitter", func(t *testing.T) {
		// The zero value must jitter like the defaults do; opting out
		// takes a negative Jitter.
		b := NewBackoffWithConfig(BackoffConfig{})

		samples := make([]time.Duration, 10)
		for i := range samples {
			samples[i] = b.Peek()
		}

		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("BackoffConfig{} produced identical samples - default jitter not applied")
		}
	})

	t.Run("NegativeJitterDisables", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Jitter: -1})

		for i := 0; i < 5; i++ {
			if got := b.Peek(); got != InitialBackoff {
				t.Fatalf("Peek() = %v with jitter disabled, want %v", got, InitialBackoff)
			}
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     -1, // No jitter for deterministic test
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond, // Max
			500 * time.Millisecond,
		}

		for i, exp := range expected {
			got := b.Next()
			if got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
	})
}

func testBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{
		Initial:    time.Millisecond,
		Max:        5 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     -1,
	})
}

func TestRetrier(t *testing.T) {
	t.Run("FirstAttemptSucceeds", func(t *testing.T) {
		r := NewRetrier(testBackoff(), 3)

		calls := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})

		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if calls != 1 {
			t.Errorf("op called %d times, want 1", calls)
		}
	})

	t.Run("EventualSuccess", func(t *testing.T) {
		b := testBackoff()
		r := NewRetrier(b, 5)

		calls := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})

		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("op called %d times, want 3", calls)
		}
		if b.Attempts() != 0 {
			t.Errorf("backoff not reset after success: attempts = %d", b.Attempts())
		}
	})

	t.Run("BudgetExhausted", func(t *testing.T) {
		r := NewRetrier(testBackoff(), 3)

		opErr := errors.New("still down")
		calls := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return opErr
		})

		if !errors.Is(err, ErrRetryBudgetExhausted) {
			t.Errorf("Do() error = %v, want ErrRetryBudgetExhausted", err)
		}
		if !errors.Is(err, opErr) {
			t.Errorf("Do() error should wrap the last failure, got %v", err)
		}
		if calls != 3 {
			t.Errorf("op called %d times, want 3", calls)
		}
	})

	t.Run("ContextCancelledWhileWaiting", func(t *testing.T) {
		r := NewRetrier(NewBackoffWithConfig(BackoffConfig{
			Initial: time.Minute, // Force a long wait
			Jitter:  -1,
		}), 3)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := r.Do(ctx, func(ctx context.Context) error {
			t.Error("op should not run")
			return nil
		})

		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() error = %v, want context.Canceled", err)
		}
	})

	t.Run("AttemptCallback", func(t *testing.T) {
		r := NewRetrier(testBackoff(), 3)

		var mu sync.Mutex
		var attempts []int
		r.OnAttempt(func(attempt int, delay time.Duration) {
			mu.Lock()
			attempts = append(attempts, attempt)
			mu.Unlock()
		})

		_ = r.Do(context.Background(), func(ctx context.Context) error {
			return errors.New("down")
		})

		mu.Lock()
		defer mu.Unlock()
		if len(attempts) != 3 {
			t.Fatalf("callback fired %d times, want 3", len(attempts))
		}
		for i, a := range attempts {
			if a != i+1 {
				t.Errorf("attempt %d reported as %d", i+1, a)
			}
		}
	})

	t.Run("DefaultBudget", func(t *testing.T) {
		r := NewRetrier(nil, 0)
		if r.MaxAttempts() != DefaultMaxAttempts {
			t.Errorf("MaxAttempts() = %d, want %d", r.MaxAttempts(), DefaultMaxAttempts)
		}
	})
}
