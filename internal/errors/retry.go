package errors

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	maxRetries        = 3
	initialBackoff    = 100 * time.Millisecond
	maxBackoff        = 5 * time.Second
	backoffMultiplier = 2.0
)

// WithRetry re-runs fn with exponential backoff as long as it keeps failing
// with a retryable AppError. Out-of-band Telegram notifications use this;
// store operations never do, their failures surface to the caller directly.
func WithRetry(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) || attempt == maxRetries {
			return err
		}

		time.Sleep(backoffDuration(attempt + 1))
	}

	return err
}

// IsRetryable reports whether err carries a retryable AppError.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}

	return false
}

func backoffDuration(attempt int) time.Duration {
	delay := time.Duration(float64(initialBackoff) * math.Pow(backoffMultiplier, float64(attempt)))
	if delay > maxBackoff {
		return maxBackoff
	}

	return delay
}
