package provider

import (
	"context"

	"scout/pkg/model"
)

// Provider defines the interface for market data providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetDailyCandles fetches daily OHLCV data for the specified number of
	// days, oldest first. The last candle is the most recent available bar.
	GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error)

	// GetWeeklyCandles fetches weekly OHLCV data for trend confirmation,
	// oldest first.
	GetWeeklyCandles(ctx context.Context, symbol string, weeks int) ([]model.Candle, error)

	// IsAvailable checks if the provider is usable (has credentials etc.)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetDailyCandles tries each provider in order until one succeeds
func (f *FallbackProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	var lastErr error
	for _, p := range f.providers {
		candles, err := p.GetDailyCandles(ctx, symbol, days)
		if err == nil {
			return candles, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetWeeklyCandles tries each provider in order until one succeeds
func (f *FallbackProvider) GetWeeklyCandles(ctx context.Context, symbol string, weeks int) ([]model.Candle, error) {
	var lastErr error
	for _, p := range f.providers {
		candles, err := p.GetWeeklyCandles(ctx, symbol, weeks)
		if err == nil {
			return candles, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		if p.RateLimit() > maxRate {
			maxRate = p.RateLimit()
		}
	}
	return maxRate
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}
