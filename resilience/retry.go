package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one. Zero
	// disables retrying.
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter adds up to 10% to every backoff.
	Jitter bool
	// RetryableErrors decides whether an error is worth another attempt.
	// Defaults to DefaultRetryableErrors.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns a configuration with three retries and
// exponential backoff starting at 150ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    150 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
		RetryableErrors:   DefaultRetryableErrors,
	}
}

// DefaultRetryableErrors retries everything except an open circuit, a
// circuit timeout and cancellation.
func DefaultRetryableErrors(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCircuitBreakerOpen), errors.Is(err, ErrCircuitBreakerTimeout):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Retry calls fn until it succeeds, returns an error that is not retryable,
// or MaxRetries retries have been made. The last error is returned.
func Retry(ctx context.Context, config RetryConfig, fn func(context.Context) error) error {
	retryable := config.RetryableErrors
	if retryable == nil {
		retryable = DefaultRetryableErrors
	}
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= config.MaxRetries || !retryable(err) {
			return err
		}
		timer := time.NewTimer(calculateBackoff(attempt, config))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.WithSecondaryError(ctx.Err(), err)
		case <-timer.C:
		}
	}
}

// RetryWithCircuitBreaker runs every attempt through cb. An open circuit
// ends the retries immediately.
func RetryWithCircuitBreaker(ctx context.Context, config RetryConfig, cb *CircuitBreaker, fn func(context.Context) error) error {
	return Retry(ctx, config, func(ctx context.Context) error {
		return cb.Execute(ctx, fn)
	})
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	multiplier := config.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	backoff := float64(config.InitialBackoff) * math.Pow(multiplier, float64(attempt))
	if config.MaxBackoff > 0 && backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	if config.Jitter {
		backoff += backoff * 0.1 * rand.Float64()
	}
	return time.Duration(backoff)
}
