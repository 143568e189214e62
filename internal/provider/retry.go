package provider

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jpillora/backoff"

	"scout/pkg/model"
)

// RetryingProvider wraps another provider and retries retryable failures
// (network errors, rate limiting) with exponential backoff. Non-retryable
// failures are returned immediately so a bad symbol doesn't burn attempts.
type RetryingProvider struct {
	inner    Provider
	attempts int
}

// NewRetryingProvider wraps p with up to attempts tries per call
func NewRetryingProvider(p Provider, attempts int) *RetryingProvider {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingProvider{inner: p, attempts: attempts}
}

// Name returns the underlying provider name
func (r *RetryingProvider) Name() string {
	return r.inner.Name()
}

// IsAvailable delegates to the underlying provider
func (r *RetryingProvider) IsAvailable() bool {
	return r.inner.IsAvailable()
}

// RateLimit delegates to the underlying provider
func (r *RetryingProvider) RateLimit() int {
	return r.inner.RateLimit()
}

// GetDailyCandles fetches daily candles with retries
func (r *RetryingProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	return r.withRetry(ctx, func() ([]model.Candle, error) {
		return r.inner.GetDailyCandles(ctx, symbol, days)
	})
}

// GetWeeklyCandles fetches weekly candles with retries
func (r *RetryingProvider) GetWeeklyCandles(ctx context.Context, symbol string, weeks int) ([]model.Candle, error) {
	return r.withRetry(ctx, func() ([]model.Candle, error) {
		return r.inner.GetWeeklyCandles(ctx, symbol, weeks)
	})
}

func (r *RetryingProvider) withRetry(ctx context.Context, fn func() ([]model.Candle, error)) ([]model.Candle, error) {
	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    15 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		candles, err := fn()
		if err == nil {
			return candles, nil
		}
		lastErr = err

		var pe *ProviderError
		if errors.As(err, &pe) && !pe.Retryable {
			return nil, err
		}

		if attempt < r.attempts-1 {
			wait := b.Duration()
			log.Printf("[PROVIDER] %s retry %d/%d in %s: %v",
				r.inner.Name(), attempt+1, r.attempts-1, wait.Round(time.Millisecond), err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, lastErr
}
