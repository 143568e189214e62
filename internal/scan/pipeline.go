package scan

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"scout/internal/indicator"
	"scout/internal/provider"
	"scout/internal/recorder"
	"scout/internal/rule"
	"scout/internal/sentiment"
	"scout/pkg/model"
)

// Result is one qualifying instrument in a scan pass, rebuilt fresh every
// run and never persisted by the pipeline itself.
type Result struct {
	Ticker           string   `json:"ticker"`
	Price            float64  `json:"price"`
	Score            int      `json:"score"`
	WeightedScore    float64  `json:"weighted_score"`
	ScorePct         float64  `json:"score_pct"`
	ActiveStrategies []string `json:"active_strategies"`
	SentimentScore   float64  `json:"sentiment_score,omitempty"`
	SentimentReason  string   `json:"sentiment_reason,omitempty"`
}

// Config holds scan pipeline settings
type Config struct {
	Workers            int
	Timeout            time.Duration
	DailyBars          int
	WeeklyBars         int
	MinScorePct        float64
	SentimentThreshold float64
}

// DefaultConfig returns the standard pipeline settings
func DefaultConfig() Config {
	return Config{
		Workers:            4,
		Timeout:            15 * time.Minute,
		DailyBars:          300,
		WeeklyBars:         260,
		MinScorePct:        50,
		SentimentThreshold: -0.3,
	}
}

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Pipeline runs the multi-stage scan: evaluate rules per instrument, score,
// apply the trend and sentiment gates, rank.
type Pipeline struct {
	provider     provider.Provider
	oracle       sentiment.Oracle // nil bypasses the sentiment gate
	recorder     recorder.Recorder
	config       Config
	progressFunc ProgressCallback
}

// New creates a pipeline. oracle may be nil; rec may be nil to skip history
// recording.
func New(p provider.Provider, oracle sentiment.Oracle, rec recorder.Recorder, cfg Config) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if rec == nil {
		rec = recorder.NewNoop()
	}
	return &Pipeline{
		provider: p,
		oracle:   oracle,
		recorder: rec,
		config:   cfg,
	}
}

// SetProgressCallback sets the progress callback function
func (p *Pipeline) SetProgressCallback(fn ProgressCallback) {
	p.progressFunc = fn
}

// Scan evaluates every rule against every instrument and returns the
// qualifying results ranked by (score percentage, sentiment score), both
// descending. Per-instrument failures are logged and skipped; they never
// abort the batch.
func (p *Pipeline) Scan(ctx context.Context, stocks []model.Stock, rules []rule.Rule) ([]Result, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("no executable rules loaded")
	}
	if len(stocks) == 0 {
		return []Result{}, nil
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	jobChan := make(chan model.Stock, len(stocks))
	resultChan := make(chan *Result, len(stocks))
	for _, stock := range stocks {
		jobChan <- stock
	}
	close(jobChan)

	var scannedCount int64
	var wg sync.WaitGroup
	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for stock := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result, err := p.scanStock(ctx, stock, rules)
				if err != nil {
					log.Printf("[SCAN] %s: %v", stock.Symbol, err)
				} else if result != nil {
					resultChan <- result
				}

				count := atomic.AddInt64(&scannedCount, 1)
				if p.progressFunc != nil {
					p.progressFunc(int(count), len(stocks))
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var candidates []Result
	for result := range resultChan {
		candidates = append(candidates, *result)
	}

	results := p.applyGates(ctx, candidates)
	sortResults(results)

	if len(results) > 0 {
		if err := p.record(results); err != nil {
			log.Printf("[SCAN] Recording scan history: %v", err)
		}
	}
	return results, nil
}

// scanStock fetches bars, evaluates every rule at the latest row and applies
// the weekly trend gate. Returns nil for instruments that don't qualify.
func (p *Pipeline) scanStock(ctx context.Context, stock model.Stock, rules []rule.Rule) (*Result, error) {
	candles, err := p.provider.GetDailyCandles(ctx, stock.Symbol, p.config.DailyBars)
	if err != nil {
		return nil, fmt.Errorf("fetching daily bars: %w", err)
	}
	if len(candles) == 0 {
		return nil, nil
	}

	frame := indicator.AddStandardIndicators(indicator.NewFrame(candles))

	var active []string
	var weighted float64
	for _, r := range rules {
		signals := rule.Evaluate(frame, r)
		if len(signals) > 0 && signals[len(signals)-1] {
			active = append(active, r.Name)
			weighted += WeightFor(r.Name)
		}
	}

	if len(active) == 0 {
		return nil, nil
	}

	if !p.weeklyUptrend(ctx, stock.Symbol) {
		log.Printf("[SCAN] %s skipped: weekly downtrend (EMA50 < EMA200)", stock.Symbol)
		return nil, nil
	}

	return &Result{
		Ticker:           stock.Symbol,
		Price:            frame.LastClose(),
		Score:            len(active),
		WeightedScore:    weighted,
		ScorePct:         float64(len(active)) / float64(len(rules)) * 100,
		ActiveStrategies: active,
	}, nil
}

// weeklyUptrend is the multi-timeframe confirmation gate. It fails open:
// if weekly data can't be fetched, or there isn't enough history for the
// slow average, the instrument passes.
func (p *Pipeline) weeklyUptrend(ctx context.Context, symbol string) bool {
	weekly, err := p.provider.GetWeeklyCandles(ctx, symbol, p.config.WeeklyBars)
	if err != nil {
		log.Printf("[SCAN] %s: weekly fetch failed, keeping: %v", symbol, err)
		return true
	}
	if len(weekly) < 50 {
		return true
	}

	frame := indicator.AddStandardIndicators(indicator.NewFrame(weekly))
	fast, _ := frame.Last("EMA_50")
	slow, _ := frame.Last("EMA_200")
	if math.IsNaN(fast) || math.IsNaN(slow) {
		return true
	}
	return fast >= slow
}

// applyGates keeps candidates above the minimum score and runs the
// sentiment gate when an oracle is available. Oracle calls are sequential
// so its own rate limits are respected.
func (p *Pipeline) applyGates(ctx context.Context, candidates []Result) []Result {
	useSentiment := p.oracle != nil && p.oracle.IsAvailable()

	results := make([]Result, 0, len(candidates))
	for _, res := range candidates {
		if res.ScorePct < p.config.MinScorePct {
			continue
		}

		if useSentiment {
			score, err := p.oracle.Analyze(ctx, res.Ticker)
			if err != nil {
				// A failed analysis is neutral, not disqualifying
				log.Printf("[SCAN] %s: sentiment analysis failed: %v", res.Ticker, err)
				score = sentiment.Score{Value: 0, Reason: "analysis failed"}
			}
			res.SentimentScore = score.Value
			res.SentimentReason = score.Reason

			if score.Value < p.config.SentimentThreshold {
				log.Printf("[SCAN] %s skipped: negative news sentiment (%.2f)", res.Ticker, score.Value)
				continue
			}
		} else {
			res.SentimentReason = "N/A"
		}

		results = append(results, res)
	}
	return results
}

// sortResults ranks by score percentage, sentiment breaking ties
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].ScorePct != results[j].ScorePct {
			return results[i].ScorePct > results[j].ScorePct
		}
		return results[i].SentimentScore > results[j].SentimentScore
	})
}

func (p *Pipeline) record(results []Result) error {
	records := make([]recorder.ScanRecord, len(results))
	for i, res := range results {
		records[i] = recorder.ScanRecord{
			Ticker:          res.Ticker,
			Price:           res.Price,
			Score:           res.Score,
			WeightedScore:   res.WeightedScore,
			ScorePct:        res.ScorePct,
			Strategies:      strings.Join(res.ActiveStrategies, ","),
			SentimentScore:  res.SentimentScore,
			SentimentReason: res.SentimentReason,
		}
	}
	return p.recorder.RecordScan(time.Now(), records)
}
