package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/shared"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production [Sleeper].
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PermanentError is returned when a remote call fails with an error that will not succeed on retry.
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: permanent failure: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() []error {
	return []error{shared.ErrPermanentRemote, e.Err}
}

// RetryExhaustedError is returned after MaxAttempts transient failures.
type RetryExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{shared.ErrRetryExhausted, e.Err}
}

// RetryPolicy wraps a single remote call with bounded exponential backoff.
//
// The wait before attempt n+1 is BaseDelay * 2^(n-1), capped at MaxDelay when MaxDelay is positive.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Sleep       Sleeper
	Logger      *log.Logger
}

// DefaultRetryPolicy returns a policy with 5 attempts and a 1s base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Sleep:       SleepContext,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, fails fatally, or MaxAttempts is reached.
//
// Fatal failures return a [*PermanentError] immediately. Exhaustion returns a [*RetryExhaustedError].
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return &PermanentError{Op: op, Err: err}
		}
		if attempt >= attempts {
			return &RetryExhaustedError{Op: op, Attempts: attempt, Err: err}
		}

		delay := p.Delay(attempt)
		if p.Logger != nil {
			p.Logger.Warn("remote call failed, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
		}
		if err := sleep(ctx, delay); err != nil {
			return &PermanentError{Op: op, Err: err}
		}
	}
}

// Keyword lists for errors that carry no structured classification.
var (
	fatalKeywords     = []string{"403", "quota"}
	retryableKeywords = []string{
		"timeout", "timed out", "time-out",
		"connection reset", "connection aborted", "connection refused",
		"temporarily unavailable", "try again", "unavailable",
		"server error", "http 5", " 5xx",
		"rate limit", "too many requests", "429",
	}
)

// IsRetryable classifies err.
//
// Errors wrapping [shared.ErrTransientRemote] or [shared.ErrPermanentRemote] are classified by that marker.
// Context errors are fatal. Anything else falls back to matching the message text, and unknown errors are fatal.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, shared.ErrPermanentRemote):
		return false
	case errors.Is(err, shared.ErrTransientRemote):
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, k := range fatalKeywords {
		if strings.Contains(msg, k) {
			return false
		}
	}
	for _, k := range retryableKeywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}
