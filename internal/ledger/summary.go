package ledger

import "sort"

// HoldingSummary is the mark-to-market view of one open position
type HoldingSummary struct {
	Ticker   string  `json:"ticker"`
	Qty      int     `json:"qty"`
	AvgPrice float64 `json:"avg"`
	Price    float64 `json:"cmp"`
	Value    float64 `json:"value"`
	PnL      float64 `json:"pnl"`
	PnLPct   float64 `json:"pnl_pct"`
}

// Summary is the full portfolio snapshot
type Summary struct {
	Balance       float64          `json:"balance"`
	HoldingsValue float64          `json:"holdings_value"`
	UnrealizedPnL float64          `json:"unrealized_pnl"`
	Equity        float64          `json:"equity"`
	TotalPnL      float64          `json:"total_pnl"`
	ROIPct        float64          `json:"roi"`
	RealizedPnL   float64          `json:"realized_pnl"`
	TodaysPnL     float64          `json:"todays_pnl"`
	OpenPositions int              `json:"open_positions"`
	ClosedTrades  int              `json:"closed_trades"`
	Holdings      []HoldingSummary `json:"holdings"`
}

// Summary computes the portfolio snapshot. current holds live prices and
// prevClose the previous session's closes; both default to a position's
// average entry price when a ticker is missing, so a fresh position shows
// zero movement rather than a phantom gain.
func (l *Ledger) Summary(current, prevClose map[string]float64) Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		Balance:       l.book.Balance,
		OpenPositions: len(l.book.Holdings),
		ClosedTrades:  len(l.book.History),
	}

	today := l.now().Format("2006-01-02")

	tickers := make([]string, 0, len(l.book.Holdings))
	for t := range l.book.Holdings {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		pos := l.book.Holdings[ticker]

		price, ok := current[ticker]
		if !ok {
			price = pos.AvgPrice
		}
		prev, ok := prevClose[ticker]
		// A position opened today has no overnight move to count; it marks
		// against its entry price instead of yesterday's close.
		if !ok || pos.EntryDate.Format("2006-01-02") == today {
			prev = pos.AvgPrice
		}

		value := price * float64(pos.Qty)
		pnl := (price - pos.AvgPrice) * float64(pos.Qty)

		h := HoldingSummary{
			Ticker:   ticker,
			Qty:      pos.Qty,
			AvgPrice: pos.AvgPrice,
			Price:    price,
			Value:    value,
			PnL:      pnl,
		}
		if pos.AvgPrice > 0 {
			h.PnLPct = (price - pos.AvgPrice) / pos.AvgPrice * 100
		}
		s.Holdings = append(s.Holdings, h)

		s.HoldingsValue += value
		s.UnrealizedPnL += pnl
		s.TodaysPnL += (price - prev) * float64(pos.Qty)
	}

	for _, trade := range l.book.History {
		s.RealizedPnL += trade.PnL
		if trade.ExitDate.Format("2006-01-02") == today {
			s.TodaysPnL += trade.PnL
		}
	}

	s.Equity = s.Balance + s.HoldingsValue
	s.TotalPnL = s.Equity - l.config.InitialCapital
	if l.config.InitialCapital > 0 {
		s.ROIPct = s.TotalPnL / l.config.InitialCapital * 100
	}
	return s
}
