package sentiment

import "context"

// Score is the oracle's verdict for one instrument
type Score struct {
	Value     float64  `json:"score"`  // -1.0 (very bearish) .. 1.0 (very bullish)
	Reason    string   `json:"reason"` // one-sentence summary
	Headlines []string `json:"headlines,omitempty"`
}

// Oracle scores recent news sentiment for an instrument. Implementations
// may be unavailable (no API key); callers bypass the gate in that case.
type Oracle interface {
	Analyze(ctx context.Context, ticker string) (Score, error)
	IsAvailable() bool
}
