package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"scout/internal/config"
	"scout/internal/ledger"
	"scout/internal/provider"
	"scout/internal/recorder"
	"scout/internal/rule"
	"scout/internal/scan"
	"scout/internal/sentiment"
	"scout/internal/universe"
	"scout/pkg/model"
)

var (
	cfgFile    string
	workers    int
	symbolList string
	format     string
	topN       int
	buyPrice   float64
	buyStop    float64
	buyTarget  float64
	sellPrice  float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scout",
		Short: "NSE signal scanner with a simulated position ledger",
		Long: `Scout scans NSE stocks against JSON strategy rules, scores and ranks the
hits, and manages a paper-trading portfolio:

  scout scan                 Run the strategy scan and print ranked results
  scout run                  Daily workflow: process exits, buy top picks, show portfolio
  scout portfolio            Show the current portfolio snapshot
  scout buy RELIANCE         Open a simulated position
  scout sell RELIANCE        Close a simulated position`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the universe and print ranked signals",
		RunE:  runScan,
	}
	scanCmd.Flags().IntVar(&workers, "workers", 0, "number of parallel workers (0 = from config)")
	scanCmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated tickers to scan (default: configured universe)")
	scanCmd.Flags().StringVar(&format, "format", "table", "output format: table, json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Daily workflow: exits, scan, top-pick entries, portfolio summary",
		RunE:  runDaily,
	}
	runCmd.Flags().IntVar(&workers, "workers", 0, "number of parallel workers (0 = from config)")
	runCmd.Flags().IntVar(&topN, "top", 3, "number of top-ranked signals to buy")

	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show the portfolio snapshot",
		RunE:  runPortfolio,
	}

	buyCmd := &cobra.Command{
		Use:   "buy TICKER",
		Short: "Open a simulated position",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuy,
	}
	buyCmd.Flags().Float64Var(&buyPrice, "price", 0, "entry price (0 = last close)")
	buyCmd.Flags().Float64Var(&buyStop, "stop", 0, "stop-loss price (0 = default distance)")
	buyCmd.Flags().Float64Var(&buyTarget, "target", 0, "target price (0 = default distance)")

	sellCmd := &cobra.Command{
		Use:   "sell TICKER",
		Short: "Close a simulated position",
		Args:  cobra.ExactArgs(1),
		RunE:  runSell,
	}
	sellCmd.Flags().Float64Var(&sellPrice, "price", 0, "exit price (0 = last close)")

	rootCmd.AddCommand(scanCmd, runCmd, portfolioCmd, buyCmd, sellCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, context.Context, context.CancelFunc, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if workers > 0 {
		cfg.Scan.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted. Stopping...")
		cancel()
	}()

	return cfg, ctx, cancel, nil
}

func buildProvider(cfg *config.Config) provider.Provider {
	fallback := provider.NewFallbackProvider(
		provider.NewYahooProvider(cfg.Provider.SymbolSuffix, cfg.Provider.RateLimit),
	)
	return provider.NewRetryingProvider(fallback, cfg.Provider.RetryAttempts)
}

func buildOracle(cfg *config.Config) sentiment.Oracle {
	return sentiment.NewLLMAnalyzer(cfg.Sentiment.APIKey, cfg.Sentiment.Model)
}

func buildRecorder(cfg *config.Config) (recorder.Recorder, error) {
	if cfg.Paths.ScanDB == "" {
		return recorder.NewNoop(), nil
	}
	return recorder.NewSQLiteRecorder(cfg.Paths.ScanDB)
}

func loadUniverse(cfg *config.Config) []model.Stock {
	if symbolList != "" {
		return universe.FromSymbols(strings.Split(symbolList, ","))
	}
	return universe.Load(cfg.Paths.Universe)
}

func pipelineConfig(cfg *config.Config) scan.Config {
	return scan.Config{
		Workers:            cfg.Scan.Workers,
		Timeout:            cfg.Scan.Timeout,
		DailyBars:          cfg.Scan.DailyBars,
		WeeklyBars:         cfg.Scan.WeeklyBars,
		MinScorePct:        cfg.Scan.MinScorePct,
		SentimentThreshold: cfg.Sentiment.Threshold,
	}
}

func ledgerConfig(cfg *config.Config) ledger.Config {
	return ledger.Config{
		InitialCapital:   cfg.Ledger.InitialCapital,
		RiskPerTrade:     cfg.Ledger.RiskPerTrade,
		MaxAllocationPct: cfg.Ledger.MaxAllocationPct,
		DefaultStopPct:   cfg.Ledger.DefaultStopPct,
		DefaultTargetPct: cfg.Ledger.DefaultTargetPct,
	}
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func executeScan(ctx context.Context, cfg *config.Config) ([]scan.Result, error) {
	rules, err := rule.LoadDir(cfg.Paths.Rules)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	stocks := loadUniverse(cfg)
	if err := universe.Validate(stocks); err != nil {
		return nil, err
	}

	rec, err := buildRecorder(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening scan history: %w", err)
	}
	defer rec.Close()

	fmt.Printf("Scanning %d stocks against %d rules...\n\n", len(stocks), len(rules))

	pipe := scan.New(buildProvider(cfg), buildOracle(cfg), rec, pipelineConfig(cfg))

	bar := newProgressBar(len(stocks))
	pipe.SetProgressCallback(func(scanned, total int) {
		bar.Set(scanned)
	})

	results, err := pipe.Scan(ctx, stocks, rules)
	bar.Finish()
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	return results, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, ctx, cancel, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	results, err := executeScan(ctx, cfg)
	if err != nil {
		return err
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}
	printResults(results)
	return nil
}

func printResults(results []scan.Result) {
	if len(results) == 0 {
		fmt.Println("No qualifying signals found.")
		return
	}

	fmt.Printf("Found %d qualifying signals:\n\n", len(results))

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Price", "Score", "Score%", "Sentiment", "Strategies"}),
	)

	for _, r := range results {
		strategies := strings.Join(r.ActiveStrategies, ", ")
		if len(strategies) > 45 {
			strategies = strategies[:45] + "..."
		}

		table.Append([]string{
			r.Ticker,
			fmt.Sprintf("%.2f", r.Price),
			fmt.Sprintf("%d (%.1f)", r.Score, r.WeightedScore),
			fmt.Sprintf("%.0f%%", r.ScorePct),
			fmt.Sprintf("%+.2f", r.SentimentScore),
			strategies,
		})
	}

	table.Render()
}

func runDaily(cmd *cobra.Command, args []string) error {
	cfg, ctx, cancel, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	led, err := ledger.New(cfg.Paths.Ledger, ledgerConfig(cfg))
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	prov := buildProvider(cfg)

	// Stage 1: check open positions against their stop and target levels
	current, prevClose := fetchHoldingPrices(ctx, prov, led)
	if len(current) > 0 {
		messages, err := led.UpdateWithPrices(current)
		if err != nil {
			return fmt.Errorf("processing exits: %w", err)
		}
		for _, msg := range messages {
			fmt.Println(msg)
		}
		if len(messages) > 0 {
			fmt.Println()
		}
	}

	// Stage 2: scan for fresh entries
	results, err := executeScan(ctx, cfg)
	if err != nil {
		return err
	}
	printResults(results)

	// Stage 3: buy the top-ranked signals we don't already hold
	held := led.Positions()
	bought := 0
	for _, r := range results {
		if bought >= topN {
			break
		}
		if _, ok := held[r.Ticker]; ok {
			continue
		}
		msg, err := led.Open(ledger.Order{Ticker: r.Ticker, Price: r.Price})
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", r.Ticker, err)
			continue
		}
		fmt.Println(msg)
		bought++
	}
	if bought > 0 {
		fmt.Println()
	}

	// Stage 4: portfolio snapshot
	current, prevClose = fetchHoldingPrices(ctx, prov, led)
	printSummary(led.Summary(current, prevClose))
	return nil
}

// fetchHoldingPrices quotes every open position. Missing quotes are simply
// absent from the maps; the ledger falls back to entry prices for those.
func fetchHoldingPrices(ctx context.Context, prov provider.Provider, led *ledger.Ledger) (map[string]float64, map[string]float64) {
	current := make(map[string]float64)
	prevClose := make(map[string]float64)
	for ticker := range led.Positions() {
		last, prev, err := fetchQuote(ctx, prov, ticker)
		if err != nil {
			fmt.Printf("Warning: no quote for %s: %v\n", ticker, err)
			continue
		}
		current[ticker] = last
		prevClose[ticker] = prev
	}
	return current, prevClose
}

func fetchQuote(ctx context.Context, prov provider.Provider, ticker string) (last, prev float64, err error) {
	candles, err := prov.GetDailyCandles(ctx, ticker, 5)
	if err != nil {
		return 0, 0, err
	}
	if len(candles) == 0 {
		return 0, 0, fmt.Errorf("no recent bars")
	}
	last = candles[len(candles)-1].Close
	prev = last
	if len(candles) > 1 {
		prev = candles[len(candles)-2].Close
	}
	return last, prev, nil
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	cfg, ctx, cancel, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	led, err := ledger.New(cfg.Paths.Ledger, ledgerConfig(cfg))
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	current, prevClose := fetchHoldingPrices(ctx, buildProvider(cfg), led)
	printSummary(led.Summary(current, prevClose))
	return nil
}

func printSummary(s ledger.Summary) {
	fmt.Println("--- Portfolio ---")
	fmt.Printf("Balance:    %12.2f\n", s.Balance)
	fmt.Printf("Holdings:   %12.2f\n", s.HoldingsValue)
	fmt.Printf("Equity:     %12.2f\n", s.Equity)
	fmt.Printf("Total P&L:  %12.2f (%.2f%%)\n", s.TotalPnL, s.ROIPct)
	fmt.Printf("Today P&L:  %12.2f\n", s.TodaysPnL)
	fmt.Printf("Realized:   %12.2f over %d closed trades\n", s.RealizedPnL, s.ClosedTrades)

	if len(s.Holdings) == 0 {
		fmt.Println("\nNo open positions.")
		return
	}

	fmt.Println()
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Qty", "Avg", "CMP", "Value", "P&L", "P&L%"}),
	)
	for _, h := range s.Holdings {
		table.Append([]string{
			h.Ticker,
			fmt.Sprintf("%d", h.Qty),
			fmt.Sprintf("%.2f", h.AvgPrice),
			fmt.Sprintf("%.2f", h.Price),
			fmt.Sprintf("%.2f", h.Value),
			fmt.Sprintf("%+.2f", h.PnL),
			fmt.Sprintf("%+.2f%%", h.PnLPct),
		})
	}
	table.Render()
}

func runBuy(cmd *cobra.Command, args []string) error {
	cfg, ctx, cancel, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	ticker := strings.ToUpper(args[0])

	price := buyPrice
	if price <= 0 {
		price, _, err = fetchQuote(ctx, buildProvider(cfg), ticker)
		if err != nil {
			return fmt.Errorf("quoting %s: %w", ticker, err)
		}
	}

	led, err := ledger.New(cfg.Paths.Ledger, ledgerConfig(cfg))
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	msg, err := led.Open(ledger.Order{
		Ticker:   ticker,
		Price:    price,
		StopLoss: buyStop,
		Target:   buyTarget,
	})
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runSell(cmd *cobra.Command, args []string) error {
	cfg, ctx, cancel, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	ticker := strings.ToUpper(args[0])

	price := sellPrice
	if price <= 0 {
		price, _, err = fetchQuote(ctx, buildProvider(cfg), ticker)
		if err != nil {
			return fmt.Errorf("quoting %s: %w", ticker, err)
		}
	}

	led, err := ledger.New(cfg.Paths.Ledger, ledgerConfig(cfg))
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	msg, err := led.CloseManual(ticker, price)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}
