package ledger

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Exit reasons recorded on closed trades
const (
	ReasonTarget   = "TARGET"
	ReasonStopLoss = "STOPLOSS"
	ReasonManual   = "MANUAL"
)

// Rejection reasons for mutating calls. These are diagnostics, not faults:
// the ledger state is untouched when they are returned.
var (
	ErrDuplicatePosition = errors.New("already holding an open position")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoPosition        = errors.New("no open position")
)

// Config holds the risk limits applied when sizing positions
type Config struct {
	InitialCapital   float64
	RiskPerTrade     float64 // fraction of balance risked per trade
	MaxAllocationPct float64 // cap on a single position's cost vs balance
	DefaultStopPct   float64 // stop distance when the order doesn't carry one
	DefaultTargetPct float64 // target distance when the order doesn't carry one
}

// DefaultConfig returns the standard risk limits
func DefaultConfig() Config {
	return Config{
		InitialCapital:   100000,
		RiskPerTrade:     0.02,
		MaxAllocationPct: 0.10,
		DefaultStopPct:   0.05,
		DefaultTargetPct: 0.05,
	}
}

// Position is one open holding. An instrument has at most one.
type Position struct {
	Qty       int       `json:"qty"`
	AvgPrice  float64   `json:"avg_price"`
	EntryDate time.Time `json:"entry_date"`
	StopLoss  float64   `json:"sl"`
	Target    float64   `json:"target"`
}

// ClosedTrade is one append-only history entry
type ClosedTrade struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	PnL       float64   `json:"pnl"`
	ExitPrice float64   `json:"exit_price"`
	ExitDate  time.Time `json:"exit_date"`
	Reason    string    `json:"reason"`
}

// book is the persisted ledger blob
type book struct {
	Balance   float64             `json:"balance"`
	Holdings  map[string]Position `json:"holdings"`
	History   []ClosedTrade       `json:"history"`
	StartDate string              `json:"start_date"`
}

// Order is a buy instruction. StopLoss and Target of 0 take the configured
// default distances from the entry price.
type Order struct {
	Ticker   string
	Price    float64
	StopLoss float64
	Target   float64
}

// Ledger is a simulated position book persisted to a single JSON file.
// Not designed for concurrent writers across processes; within a process
// the mutex serializes access.
type Ledger struct {
	mu     sync.Mutex
	path   string
	config Config
	book   book
	now    func() time.Time
}

// New loads the ledger from path, creating a fresh book only when the file
// does not exist. A corrupt file is fatal: fabricating a fresh ledger over
// real capital would silently destroy the book.
func New(path string, cfg Config) (*Ledger, error) {
	l := &Ledger{
		path:   path,
		config: cfg,
		now:    time.Now,
	}

	b, found, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("loading ledger %s: %w", path, err)
	}
	if found {
		l.book = b
		log.Printf("[LEDGER] Loaded %s: balance %.2f, %d open, %d closed",
			path, b.Balance, len(b.Holdings), len(b.History))
	} else {
		l.book = book{
			Balance:   cfg.InitialCapital,
			Holdings:  make(map[string]Position),
			StartDate: time.Now().Format("2006-01-02"),
		}
		if err := l.save(); err != nil {
			return nil, fmt.Errorf("initializing ledger: %w", err)
		}
		log.Printf("[LEDGER] Created %s with capital %.2f", path, cfg.InitialCapital)
	}
	if l.book.Holdings == nil {
		l.book.Holdings = make(map[string]Position)
	}
	return l, nil
}

// Open executes a simulated BUY, sizing the position under the risk limits.
// Sizing: risk 2% of balance against the stop distance, then cap the cost
// at the concentration limit. Rejected without mutation when the instrument
// is already held or the cost exceeds available cash.
func (l *Ledger) Open(o Order) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if o.Price <= 0 {
		return "", fmt.Errorf("invalid price %.2f for %s", o.Price, o.Ticker)
	}
	if _, held := l.book.Holdings[o.Ticker]; held {
		return "", fmt.Errorf("%s: %w", o.Ticker, ErrDuplicatePosition)
	}

	stopLoss := o.StopLoss
	if stopLoss == 0 {
		stopLoss = o.Price * (1 - l.config.DefaultStopPct)
	}
	target := o.Target
	if target == 0 {
		target = o.Price * (1 + l.config.DefaultTargetPct)
	}

	riskAmount := l.book.Balance * l.config.RiskPerTrade
	riskPerShare := o.Price - stopLoss

	var qty int
	if riskPerShare <= 0 {
		qty = 1 // degenerate stop, fall back to a single share
	} else {
		qty = int(math.Floor(riskAmount / riskPerShare))
	}

	maxCost := l.book.Balance * l.config.MaxAllocationPct
	if float64(qty)*o.Price > maxCost {
		qty = int(math.Floor(maxCost / o.Price))
	}
	if qty < 1 {
		qty = 1
	}

	cost := float64(qty) * o.Price
	if cost > l.book.Balance {
		return "", fmt.Errorf("%s: %w (need %.2f, have %.2f)",
			o.Ticker, ErrInsufficientFunds, cost, l.book.Balance)
	}

	l.book.Balance -= cost
	l.book.Holdings[o.Ticker] = Position{
		Qty:       qty,
		AvgPrice:  o.Price,
		EntryDate: l.now(),
		StopLoss:  stopLoss,
		Target:    target,
	}

	if err := l.save(); err != nil {
		return "", err
	}
	msg := fmt.Sprintf("BUY %d %s @ %.2f (stop %.2f, target %.2f)",
		qty, o.Ticker, o.Price, stopLoss, target)
	log.Printf("[LEDGER] %s", msg)
	return msg, nil
}

// UpdateWithPrices checks every open position against its exit triggers.
// Target is evaluated before stop so that a gap through both levels counts
// as a target exit. The blob is rewritten only when something closed.
func (l *Ledger) UpdateWithPrices(prices map[string]float64) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tickers := make([]string, 0, len(l.book.Holdings))
	for t := range l.book.Holdings {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var messages []string
	for _, ticker := range tickers {
		price, ok := prices[ticker]
		if !ok {
			continue
		}
		pos := l.book.Holdings[ticker]

		switch {
		case price >= pos.Target:
			pnl := l.close(ticker, pos, price, ReasonTarget)
			messages = append(messages, fmt.Sprintf("TARGET HIT: %s @ %.2f (%+.2f)", ticker, price, pnl))
		case price <= pos.StopLoss:
			pnl := l.close(ticker, pos, price, ReasonStopLoss)
			messages = append(messages, fmt.Sprintf("STOP HIT: %s @ %.2f (%+.2f)", ticker, price, pnl))
		}
	}

	if len(messages) == 0 {
		return nil, nil
	}
	if err := l.save(); err != nil {
		return messages, err
	}
	for _, m := range messages {
		log.Printf("[LEDGER] %s", m)
	}
	return messages, nil
}

// CloseManual closes an open position at the given price with reason MANUAL
func (l *Ledger) CloseManual(ticker string, price float64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, held := l.book.Holdings[ticker]
	if !held {
		return "", fmt.Errorf("%s: %w", ticker, ErrNoPosition)
	}
	if price <= 0 {
		return "", fmt.Errorf("invalid price %.2f for %s", price, ticker)
	}

	pnl := l.close(ticker, pos, price, ReasonManual)
	if err := l.save(); err != nil {
		return "", err
	}
	msg := fmt.Sprintf("SELL %d %s @ %.2f (%+.2f)", pos.Qty, ticker, price, pnl)
	log.Printf("[LEDGER] %s", msg)
	return msg, nil
}

// close frees the instrument key, credits the proceeds and appends the
// history entry. Caller holds the lock and persists.
func (l *Ledger) close(ticker string, pos Position, price float64, reason string) float64 {
	pnl := (price - pos.AvgPrice) * float64(pos.Qty)
	l.book.Balance += price * float64(pos.Qty)
	delete(l.book.Holdings, ticker)
	l.book.History = append(l.book.History, ClosedTrade{
		ID:        uuid.NewString(),
		Ticker:    ticker,
		PnL:       pnl,
		ExitPrice: price,
		ExitDate:  l.now(),
		Reason:    reason,
	})
	return pnl
}

// Balance returns the current cash balance
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.book.Balance
}

// Positions returns a copy of the open positions keyed by ticker
func (l *Ledger) Positions() map[string]Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]Position, len(l.book.Holdings))
	for t, p := range l.book.Holdings {
		out[t] = p
	}
	return out
}

// History returns a copy of the closed-trade history
func (l *Ledger) History() []ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ClosedTrade, len(l.book.History))
	copy(out, l.book.History)
	return out
}
