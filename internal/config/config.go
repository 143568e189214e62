package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Scan      ScanConfig      `yaml:"scan"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Paths     PathsConfig     `yaml:"paths"`
}

// ProviderConfig holds market data provider settings
type ProviderConfig struct {
	SymbolSuffix  string        `yaml:"symbol_suffix"` // e.g. ".NS" for NSE
	RateLimit     int           `yaml:"rate_limit"`    // requests per minute
	RetryAttempts int           `yaml:"retry_attempts"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ScanConfig holds scan pipeline settings
type ScanConfig struct {
	Workers     int           `yaml:"workers"`
	Timeout     time.Duration `yaml:"timeout"`
	DailyBars   int           `yaml:"daily_bars"`
	WeeklyBars  int           `yaml:"weekly_bars"`
	MinScorePct float64       `yaml:"min_score_pct"`
}

// SentimentConfig holds sentiment oracle settings
type SentimentConfig struct {
	APIKey    string  `yaml:"api_key"`
	Model     string  `yaml:"model"`
	Threshold float64 `yaml:"threshold"`
}

// LedgerConfig holds paper trading risk settings
type LedgerConfig struct {
	InitialCapital   float64 `yaml:"initial_capital"`
	RiskPerTrade     float64 `yaml:"risk_per_trade"`
	MaxAllocationPct float64 `yaml:"max_allocation_pct"`
	DefaultStopPct   float64 `yaml:"default_stop_pct"`
	DefaultTargetPct float64 `yaml:"default_target_pct"`
}

// PathsConfig holds file locations
type PathsConfig struct {
	Rules    string `yaml:"rules"`    // directory of *.json rule files
	Universe string `yaml:"universe"` // JSON array of tickers (optional)
	Ledger   string `yaml:"ledger"`   // portfolio blob
	ScanDB   string `yaml:"scan_db"`  // sqlite scan history (optional)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			SymbolSuffix:  ".NS",
			RateLimit:     30,
			RetryAttempts: 3,
			Timeout:       30 * time.Second,
		},
		Scan: ScanConfig{
			Workers:     4,
			Timeout:     15 * time.Minute,
			DailyBars:   300,
			WeeklyBars:  260,
			MinScorePct: 50,
		},
		Sentiment: SentimentConfig{
			APIKey:    os.Getenv("MISTRAL_API_KEY"),
			Model:     "mistral-small-latest",
			Threshold: -0.3,
		},
		Ledger: LedgerConfig{
			InitialCapital:   100000,
			RiskPerTrade:     0.02,
			MaxAllocationPct: 0.10,
			DefaultStopPct:   0.05,
			DefaultTargetPct: 0.05,
		},
		Paths: PathsConfig{
			Rules:    "data/strategies",
			Universe: "data/universe.json",
			Ledger:   "data/portfolio.json",
		},
	}
}

// Load loads configuration from a YAML file, layered over defaults, with
// environment variables taking final precedence. A missing file is fine.
func Load(path string) (*Config, error) {
	// Best effort: a .env file is a convenience, not a requirement
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if key := os.Getenv("MISTRAL_API_KEY"); key != "" {
		cfg.Sentiment.APIKey = key
	}
	if v := os.Getenv("SENTIMENT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sentiment.Threshold = f
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	if c.Scan.DailyBars < 30 {
		return fmt.Errorf("scan.daily_bars must be at least 30")
	}
	if c.Ledger.InitialCapital <= 0 {
		return fmt.Errorf("ledger.initial_capital must be positive")
	}
	if c.Ledger.RiskPerTrade <= 0 || c.Ledger.RiskPerTrade > 1 {
		return fmt.Errorf("ledger.risk_per_trade must be in (0, 1]")
	}
	if c.Paths.Ledger == "" {
		return fmt.Errorf("paths.ledger is required")
	}
	return nil
}
