package recorder

import "time"

// ScanRecord is one instrument's outcome in a scan pass
type ScanRecord struct {
	Ticker          string
	Price           float64
	Score           int
	WeightedScore   float64
	ScorePct        float64
	Strategies      string // comma-joined active rule names
	SentimentScore  float64
	SentimentReason string
}

// Recorder persists scan passes for later analysis. It is an append-only
// audit trail; the pipeline never reads it back.
type Recorder interface {
	RecordScan(ts time.Time, records []ScanRecord) error
	Close() error
}
