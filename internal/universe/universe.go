package universe

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"scout/pkg/model"
)

// nifty50 is the fallback universe when no universe file is configured
var nifty50 = []string{
	"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK", "HINDUNILVR", "SBIN", "BHARTIARTL", "ITC", "ASIANPAINT",
	"KOTAKBANK", "LT", "AXISBANK", "HCLTECH", "MARUTI", "SUNPHARMA", "TITAN", "BAJFINANCE", "ULTRACEMCO", "NESTLEIND",
	"WIPRO", "ONGC", "NTPC", "POWERGRID", "JSWSTEEL", "TATASTEEL", "ADANIENT", "ADANIPORTS", "GRASIM", "COALINDIA",
	"BAJAJFINSV", "TECHM", "HINDALCO", "DIVISLAB", "CIPLA", "EICHERMOT", "BPCL", "TATAMOTORS", "DRREDDY", "HEROMOTOCO",
	"UPL", "APOLLOHOSP", "SBILIFE", "BRITANNIA", "INDUSINDBK", "BAJAJ-AUTO", "TATACONSUM", "M&M", "HDFCLIFE", "LTIM",
}

// Load reads the scan universe from a JSON file (an array of ticker
// strings). A missing or unreadable file falls back to the Nifty 50 list.
func Load(path string) []model.Stock {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			var tickers []string
			if err := json.Unmarshal(data, &tickers); err == nil && len(tickers) > 0 {
				log.Printf("[UNIVERSE] Loaded %d tickers from %s", len(tickers), path)
				return FromSymbols(tickers)
			}
			log.Printf("[UNIVERSE] Could not parse %s, falling back to Nifty 50", path)
		} else {
			log.Printf("[UNIVERSE] Could not read %s (%v), falling back to Nifty 50", path, err)
		}
	}
	return FromSymbols(nifty50)
}

// FromSymbols builds stocks from raw ticker strings
func FromSymbols(symbols []string) []model.Stock {
	stocks := make([]model.Stock, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		stocks = append(stocks, model.Stock{
			Symbol:   sym,
			Name:     sym,
			Exchange: "NSE",
		})
	}
	return stocks
}

// Validate sanity-checks a universe before a scan
func Validate(stocks []model.Stock) error {
	if len(stocks) == 0 {
		return fmt.Errorf("empty universe")
	}
	return nil
}
