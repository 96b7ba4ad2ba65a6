// Package retry provides the bounded, sequential retry loops used for page
// navigation and store writes.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy decides whether another attempt is made and how long to wait.
type Policy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Fixed retries up to Attempts times in total with a constant Delay between
// attempts.
type Fixed struct {
	Attempts int
	Delay    time.Duration
}

// NewFixed builds a fixed-delay policy. attempts below one are treated as one.
func NewFixed(attempts int, delay time.Duration) Fixed {
	if attempts < 1 {
		attempts = 1
	}
	return Fixed{Attempts: attempts, Delay: delay}
}

// ShouldRetry reports whether attempt (1-based, already made) may be
// followed by another. Context cancellation is never retried.
func (p Fixed) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.Attempts {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// Backoff returns the constant delay.
func (p Fixed) Backoff(int) time.Duration {
	return p.Delay
}

// Sleeper waits between attempts. Tests substitute an instant sleeper.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Notify is called after each failed attempt, before any wait.
type Notify func(err error, attempt int)

// Do runs fn until it succeeds or the policy gives up and returns the
// number of attempts made together with the last error.
func Do(ctx context.Context, p Policy, sleep Sleeper, notify Notify, fn func(ctx context.Context, attempt int) error) (int, error) {
	if sleep == nil {
		sleep = SleepContext
	}
	attempt := 0
	for {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if notify != nil {
			notify(err, attempt)
		}
		if !p.ShouldRetry(err, attempt) {
			return attempt, err
		}
		if waitErr := sleep(ctx, p.Backoff(attempt)); waitErr != nil {
			return attempt, errors.Join(err, waitErr)
		}
	}
}
