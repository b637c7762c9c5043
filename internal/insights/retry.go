package insights

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"
)

var (
	// ErrMaxAttemptsExceeded wraps the last error once every attempt failed.
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context ends between attempts.
	ErrContextCancelled = errors.New("context cancelled during retry")
)

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	IsRetryable  func(error) bool
}

// DefaultRetryPolicy returns three attempts starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		IsRetryable:  IsTransient,
	}
}

// IsTransient reports whether err is a rate limit, a server error or a
// network failure. Context errors are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = def.Multiplier
	}
	if p.IsRetryable == nil {
		p.IsRetryable = def.IsRetryable
	}
	return p
}

// backoff returns the delay before attempt+1.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// attempts run out.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !policy.IsRetryable(err) {
			return err
		}

		if attempt < policy.MaxAttempts {
			timer := time.NewTimer(policy.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, policy.MaxAttempts, lastErr)
}
