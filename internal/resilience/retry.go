// Package resilience provides retry and circuit-breaker protection for the
// external LLM backend used by the detectors.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxAttempts       int           // Maximum number of attempts, including the first
	InitialBackoff    time.Duration // Backoff before the second attempt
	MaxBackoff        time.Duration // Upper bound on any single backoff
	BackoffMultiplier float64       // Exponential growth factor
	Jitter            bool          // Add up to 25% random jitter to each backoff
}

// DefaultRetryConfig returns the retry configuration used for LLM batch
// requests when nothing else is configured.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func() error

// IsRetryableError decides whether an error is worth retrying.
type IsRetryableError func(error) bool

// Retry executes fn until it succeeds, a non-retryable error occurs, the
// attempt budget is exhausted, or ctx is cancelled. A nil isRetryable
// treats every error as retryable.
func Retry(ctx context.Context, fn RetryableFunc, config *RetryConfig, isRetryable IsRetryableError) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt, config.InitialBackoff, config.MaxBackoff, config.BackoffMultiplier)
		if config.Jitter {
			backoff += time.Duration(rand.Float64() * 0.25 * float64(backoff))
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// CalculateBackoff returns the exponential backoff for a given attempt,
// capped at maxBackoff.
func CalculateBackoff(attempt int, initialBackoff, maxBackoff time.Duration, multiplier float64) time.Duration {
	backoff := time.Duration(float64(initialBackoff) * math.Pow(multiplier, float64(attempt)))
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

// RetryableError wraps an error to mark it as retryable regardless of its
// underlying type.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// NewRetryableError wraps err as retryable. Returns nil for a nil err.
func NewRetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was wrapped by NewRetryableError.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
