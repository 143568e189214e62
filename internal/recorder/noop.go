package recorder

import "time"

// Noop discards all records. Used when no history database is configured.
type Noop struct{}

// NewNoop creates a no-op recorder
func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) RecordScan(time.Time, []ScanRecord) error { return nil }

func (n *Noop) Close() error { return nil }
