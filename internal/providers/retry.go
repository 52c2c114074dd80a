package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig controls retry behavior for transient API failures.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    15 * time.Second,
	}
}

// retryableError marks an error worth retrying (429, 5xx, network).
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable wraps err so RetryDo will retry it.
func Retryable(err error) error {
	return &retryableError{err: err}
}

// RetryDo runs fn with exponential backoff. Only errors wrapped with
// Retryable are retried; everything else returns immediately.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	delay := cfg.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var re *retryableError
		if !errors.As(err, &re) || attempt == cfg.MaxAttempts {
			return zero, err
		}

		slog.Warn("retrying after transient error", "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return zero, fmt.Errorf("retry attempts exhausted: %w", lastErr)
}
