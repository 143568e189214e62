package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLedger(t *testing.T, capital float64) *Ledger {
	t.Helper()
	cfg := DefaultConfig()
	cfg.InitialCapital = capital
	l, err := New(filepath.Join(t.TempDir(), "portfolio.json"), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestOpenSizing(t *testing.T) {
	l := newTestLedger(t, 50000)

	// risk = 2% of 50000 = 1000; stop distance 5 -> 200 shares,
	// capped by the 10% concentration limit to 5000/100 = 50
	msg, err := l.Open(Order{Ticker: "RELIANCE", Price: 100, StopLoss: 95})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if msg == "" {
		t.Error("Expected confirmation message")
	}

	pos, held := l.Positions()["RELIANCE"]
	if !held {
		t.Fatal("Expected open position")
	}
	if pos.Qty != 50 {
		t.Errorf("Expected qty 50, got %d", pos.Qty)
	}
	if l.Balance() != 45000 {
		t.Errorf("Expected balance 45000, got %.2f", l.Balance())
	}
}

func TestOpenDefaultStopAndTarget(t *testing.T) {
	l := newTestLedger(t, 50000)

	if _, err := l.Open(Order{Ticker: "TCS", Price: 200}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	pos := l.Positions()["TCS"]
	if pos.StopLoss != 190 { // 200 * 0.95
		t.Errorf("Expected default stop 190, got %.2f", pos.StopLoss)
	}
	if pos.Target != 210 { // 200 * 1.05
		t.Errorf("Expected default target 210, got %.2f", pos.Target)
	}
}

func TestOpenDegenerateStopDistance(t *testing.T) {
	l := newTestLedger(t, 50000)

	// Stop above entry: risk per share is negative, quantity falls back to 1
	if _, err := l.Open(Order{Ticker: "INFY", Price: 100, StopLoss: 110}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pos := l.Positions()["INFY"]; pos.Qty != 1 {
		t.Errorf("Expected fallback qty 1, got %d", pos.Qty)
	}
}

func TestOpenDuplicateRejected(t *testing.T) {
	l := newTestLedger(t, 50000)

	if _, err := l.Open(Order{Ticker: "SBIN", Price: 100, StopLoss: 95}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	balance := l.Balance()

	_, err := l.Open(Order{Ticker: "SBIN", Price: 101, StopLoss: 96})
	if err == nil {
		t.Fatal("Expected duplicate-open rejection")
	}
	if l.Balance() != balance {
		t.Error("Rejection must not mutate the balance")
	}
	if l.Positions()["SBIN"].AvgPrice != 100 {
		t.Error("Rejection must not touch the existing position")
	}
}

func TestOpenInsufficientFunds(t *testing.T) {
	l := newTestLedger(t, 50)

	// Even a single share costs more than the whole balance
	_, err := l.Open(Order{Ticker: "MRF", Price: 1000, StopLoss: 999})
	if err == nil {
		t.Fatal("Expected insufficient-funds rejection")
	}
	if l.Balance() != 50 {
		t.Errorf("Balance must be unchanged, got %.2f", l.Balance())
	}
	if len(l.Positions()) != 0 {
		t.Error("No position should be recorded")
	}
}

func TestUpdateWithPricesTarget(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "ITC", Price: 100, StopLoss: 95, Target: 110}); err != nil {
		t.Fatal(err)
	}
	qty := l.Positions()["ITC"].Qty
	balanceBefore := l.Balance()

	msgs, err := l.UpdateWithPrices(map[string]float64{"ITC": 111})
	if err != nil {
		t.Fatalf("UpdateWithPrices: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}

	if len(l.Positions()) != 0 {
		t.Error("Position should be closed")
	}
	history := l.History()
	if len(history) != 1 {
		t.Fatalf("Expected 1 closed trade, got %d", len(history))
	}
	trade := history[0]
	if trade.Reason != ReasonTarget {
		t.Errorf("Expected reason TARGET, got %s", trade.Reason)
	}
	if trade.PnL != 11*float64(qty) {
		t.Errorf("Expected pnl %.2f, got %.2f", 11*float64(qty), trade.PnL)
	}
	if trade.ID == "" {
		t.Error("Expected trade ID")
	}

	wantBalance := balanceBefore + 111*float64(qty)
	if l.Balance() != wantBalance {
		t.Errorf("Expected balance %.2f, got %.2f", wantBalance, l.Balance())
	}
}

func TestUpdateWithPricesStop(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "ITC", Price: 100, StopLoss: 95, Target: 110}); err != nil {
		t.Fatal(err)
	}

	msgs, err := l.UpdateWithPrices(map[string]float64{"ITC": 94})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if got := l.History()[0].Reason; got != ReasonStopLoss {
		t.Errorf("Expected reason STOPLOSS, got %s", got)
	}
}

func TestUpdateWithPricesNoTriggerNoWrite(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "ITC", Price: 100, StopLoss: 95, Target: 110}); err != nil {
		t.Fatal(err)
	}

	before, err := os.ReadFile(l.path)
	if err != nil {
		t.Fatal(err)
	}
	stat, _ := os.Stat(l.path)

	msgs, err := l.UpdateWithPrices(map[string]float64{"ITC": 102})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected no messages, got %v", msgs)
	}

	after, err := os.ReadFile(l.path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("Ledger file must be byte-for-byte unchanged when nothing triggered")
	}
	stat2, _ := os.Stat(l.path)
	if !stat.ModTime().Equal(stat2.ModTime()) {
		t.Error("Ledger file must not be rewritten when nothing triggered")
	}
}

func TestCloseManual(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "WIPRO", Price: 100, StopLoss: 95}); err != nil {
		t.Fatal(err)
	}

	if _, err := l.CloseManual("WIPRO", 103); err != nil {
		t.Fatalf("CloseManual: %v", err)
	}
	if got := l.History()[0].Reason; got != ReasonManual {
		t.Errorf("Expected reason MANUAL, got %s", got)
	}

	if _, err := l.CloseManual("WIPRO", 103); err == nil {
		t.Error("Expected rejection when no position is open")
	}
}

func TestReopenAfterClose(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "LT", Price: 100, StopLoss: 95}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.CloseManual("LT", 105); err != nil {
		t.Fatal(err)
	}

	// The instrument key is freed on close, so a new cycle may begin
	if _, err := l.Open(Order{Ticker: "LT", Price: 106, StopLoss: 101}); err != nil {
		t.Errorf("Expected reopen to succeed: %v", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.json")
	cfg := DefaultConfig()
	cfg.InitialCapital = 50000

	l, err := New(path, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Open(Order{Ticker: "HDFCBANK", Price: 100, StopLoss: 95}); err != nil {
		t.Fatal(err)
	}

	// A second instance constructed over the same blob sees the same state
	l2, err := New(path, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l2.Balance() != l.Balance() {
		t.Errorf("Balance mismatch after reload: %.2f vs %.2f", l2.Balance(), l.Balance())
	}
	if _, held := l2.Positions()["HDFCBANK"]; !held {
		t.Error("Position lost after reload")
	}
}

func TestCorruptLedgerIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(path, DefaultConfig()); err == nil {
		t.Fatal("Expected corrupt ledger to be fatal, not silently replaced")
	}

	// The corrupt file must survive for inspection
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{truncated" {
		t.Error("Corrupt ledger file must not be overwritten")
	}
}

func TestSummary(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "TATASTEEL", Price: 100, StopLoss: 95}); err != nil {
		t.Fatal(err)
	}
	qty := l.Positions()["TATASTEEL"].Qty

	// Held since yesterday, so the overnight move counts toward today's pnl
	pos := l.book.Holdings["TATASTEEL"]
	pos.EntryDate = time.Now().AddDate(0, 0, -1)
	l.book.Holdings["TATASTEEL"] = pos

	s := l.Summary(
		map[string]float64{"TATASTEEL": 104},
		map[string]float64{"TATASTEEL": 102},
	)

	if s.OpenPositions != 1 || s.ClosedTrades != 0 {
		t.Errorf("Counts wrong: %d open, %d closed", s.OpenPositions, s.ClosedTrades)
	}
	wantValue := 104 * float64(qty)
	if s.HoldingsValue != wantValue {
		t.Errorf("HoldingsValue: got %.2f, want %.2f", s.HoldingsValue, wantValue)
	}
	if s.UnrealizedPnL != 4*float64(qty) {
		t.Errorf("UnrealizedPnL: got %.2f, want %.2f", s.UnrealizedPnL, 4*float64(qty))
	}
	if s.Equity != s.Balance+wantValue {
		t.Errorf("Equity: got %.2f, want %.2f", s.Equity, s.Balance+wantValue)
	}
	if s.TotalPnL != s.Equity-50000 {
		t.Errorf("TotalPnL: got %.2f, want %.2f", s.TotalPnL, s.Equity-50000)
	}
	// Today's movement on the open position only
	if s.TodaysPnL != 2*float64(qty) {
		t.Errorf("TodaysPnL: got %.2f, want %.2f", s.TodaysPnL, 2*float64(qty))
	}
}

func TestSummaryDefaultsToAvgPrice(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "NEWPOS", Price: 100, StopLoss: 95}); err != nil {
		t.Fatal(err)
	}

	// No live or previous-close price known: the position marks at entry
	s := l.Summary(nil, nil)
	if s.UnrealizedPnL != 0 {
		t.Errorf("Expected zero unrealized pnl, got %.2f", s.UnrealizedPnL)
	}
	if s.TodaysPnL != 0 {
		t.Errorf("Expected zero today's pnl, got %.2f", s.TodaysPnL)
	}
}

func TestSummaryEntryTodayMarksAgainstEntryPrice(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "GRASIM", Price: 100, StopLoss: 95}); err != nil {
		t.Fatal(err)
	}
	qty := l.Positions()["GRASIM"].Qty

	// Yesterday's close predates the entry and must be ignored: today's pnl
	// is the move since entry, not since the prior session.
	s := l.Summary(
		map[string]float64{"GRASIM": 104},
		map[string]float64{"GRASIM": 90},
	)
	if s.TodaysPnL != 4*float64(qty) {
		t.Errorf("TodaysPnL: got %.2f, want %.2f", s.TodaysPnL, 4*float64(qty))
	}
	if s.UnrealizedPnL != 4*float64(qty) {
		t.Errorf("UnrealizedPnL: got %.2f, want %.2f", s.UnrealizedPnL, 4*float64(qty))
	}
}

func TestSummaryTodaysRealized(t *testing.T) {
	l := newTestLedger(t, 50000)
	if _, err := l.Open(Order{Ticker: "CIPLA", Price: 100, StopLoss: 95}); err != nil {
		t.Fatal(err)
	}
	qty := l.Positions()["CIPLA"].Qty
	if _, err := l.CloseManual("CIPLA", 110); err != nil {
		t.Fatal(err)
	}

	s := l.Summary(nil, nil)
	if s.RealizedPnL != 10*float64(qty) {
		t.Errorf("RealizedPnL: got %.2f, want %.2f", s.RealizedPnL, 10*float64(qty))
	}
	// Closed today, so it counts toward today's pnl
	if s.TodaysPnL != s.RealizedPnL {
		t.Errorf("TodaysPnL: got %.2f, want %.2f", s.TodaysPnL, s.RealizedPnL)
	}

	// A trade closed yesterday drops out of today's pnl
	l.book.History[0].ExitDate = time.Now().AddDate(0, 0, -1)
	s = l.Summary(nil, nil)
	if s.TodaysPnL != 0 {
		t.Errorf("Expected zero today's pnl for old trade, got %.2f", s.TodaysPnL)
	}
}
