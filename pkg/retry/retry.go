package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plurkbackup/pkg/config"
	errs "plurkbackup/pkg/errors"
	"plurkbackup/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func(ctx context.Context) error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	Backoff     BackoffStrategy
	// RateLimitBackoff replaces Backoff for rate_limit errors when set
	RateLimitBackoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:      3,
		Backoff:          DefaultExponentialBackoff(),
		RateLimitBackoff: DefaultRateLimitBackoff(),
		RetryIf:          DefaultRetryIf,
		Logger:           logger.GetLogger(),
	}
}

// FromSettings builds a retry configuration from the user's retry settings.
// A multiplier of 1 means a fixed delay between attempts.
func FromSettings(s config.RetryConfig, log logger.Logger) *Config {
	var backoff BackoffStrategy = &ExponentialBackoff{
		BaseDelay:    s.InitialBackoff,
		MaxDelay:     s.MaxBackoff,
		Multiplier:   s.Multiplier,
		JitterFactor: 0.1,
	}
	if s.Multiplier == 1 {
		backoff = &ConstantBackoff{Delay: s.InitialBackoff}
	}

	return &Config{
		MaxAttempts:      s.MaxAttempts,
		Backoff:          backoff,
		RateLimitBackoff: DefaultRateLimitBackoff(),
		RetryIf:          DefaultRetryIf,
		Logger:           log,
	}
}

// DefaultRetryIf is the default retry predicate
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code != 0 {
			return errs.IsRetryableStatusCode(apiErr.Code)
		}
		return errs.IsRetryable(apiErr.Type)
	}

	// Untyped errors come from the network layer
	return true
}

// Do executes an operation with retry logic
func Do(ctx context.Context, cfg *Config, op Operation) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}
		// No point sleeping when this was the final attempt
		if cfg.MaxAttempts > 0 && attempt == cfg.MaxAttempts {
			continue
		}

		delay := cfg.backoffFor(err).NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			})
		}

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

func (c *Config) backoffFor(err error) BackoffStrategy {
	if c.RateLimitBackoff != nil && errs.Is(err, errs.ErrorTypeRateLimit) {
		return c.RateLimitBackoff
	}
	if c.Backoff == nil {
		return DefaultExponentialBackoff()
	}
	return c.Backoff
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, cfg *Config, op OperationWithResult[T]) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
