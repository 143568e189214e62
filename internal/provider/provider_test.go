package provider

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scout/pkg/model"
)

type stubResponse struct {
	candles []model.Candle
	err     error
}

// stubProvider replays scripted responses and counts calls
type stubProvider struct {
	name      string
	available bool
	rate      int
	calls     int
	responses []stubResponse
}

func (s *stubProvider) Name() string      { return s.name }
func (s *stubProvider) IsAvailable() bool { return s.available }
func (s *stubProvider) RateLimit() int    { return s.rate }

func (s *stubProvider) next() ([]model.Candle, error) {
	s.calls++
	if len(s.responses) == 0 {
		return nil, fmt.Errorf("no response scripted")
	}
	r := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return r.candles, r.err
}

func (s *stubProvider) GetDailyCandles(context.Context, string, int) ([]model.Candle, error) {
	return s.next()
}

func (s *stubProvider) GetWeeklyCandles(context.Context, string, int) ([]model.Candle, error) {
	return s.next()
}

func oneCandle(close float64) []model.Candle {
	return []model.Candle{{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: close}}
}

func TestFallbackTriesNextProvider(t *testing.T) {
	primary := &stubProvider{
		name: "primary", available: true,
		responses: []stubResponse{{err: fmt.Errorf("down")}},
	}
	secondary := &stubProvider{
		name: "secondary", available: true,
		responses: []stubResponse{{candles: oneCandle(100)}},
	}
	f := NewFallbackProvider(primary, secondary)

	candles, err := f.GetDailyCandles(context.Background(), "RELIANCE", 5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(candles) != 1 || candles[0].Close != 100 {
		t.Errorf("Expected secondary's data, got %v", candles)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("Expected one call each, got %d and %d", primary.calls, secondary.calls)
	}
}

func TestFallbackReturnsLastError(t *testing.T) {
	a := &stubProvider{name: "a", available: true, responses: []stubResponse{{err: fmt.Errorf("first")}}}
	b := &stubProvider{name: "b", available: true, responses: []stubResponse{{err: fmt.Errorf("second")}}}
	f := NewFallbackProvider(a, b)

	_, err := f.GetWeeklyCandles(context.Background(), "TCS", 10)
	if err == nil || err.Error() != "second" {
		t.Errorf("Expected last provider's error, got %v", err)
	}
}

func TestFallbackFiltersUnavailable(t *testing.T) {
	down := &stubProvider{name: "down", available: false}
	up := &stubProvider{
		name: "up", available: true,
		responses: []stubResponse{{candles: oneCandle(50)}},
	}
	f := NewFallbackProvider(down, up)

	if !f.IsAvailable() {
		t.Error("Expected fallback to be available")
	}
	if len(f.Providers()) != 1 {
		t.Fatalf("Expected 1 usable provider, got %d", len(f.Providers()))
	}

	if _, err := f.GetDailyCandles(context.Background(), "INFY", 5); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if down.calls != 0 {
		t.Error("Unavailable provider must never be called")
	}
}

func TestFallbackEmptyUnavailable(t *testing.T) {
	f := NewFallbackProvider(&stubProvider{name: "down", available: false})
	if f.IsAvailable() {
		t.Error("Expected unavailable with no usable providers")
	}
}

func TestFallbackRateLimit(t *testing.T) {
	f := NewFallbackProvider(
		&stubProvider{name: "slow", available: true, rate: 10},
		&stubProvider{name: "fast", available: true, rate: 60},
	)
	if got := f.RateLimit(); got != 60 {
		t.Errorf("Expected highest rate limit 60, got %d", got)
	}
}
