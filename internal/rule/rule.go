package rule

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Rule is one declarative strategy: a name plus entry conditions whose
// conjunction defines a buy signal. Exit fields are informational only and
// not consumed by the evaluator.
type Rule struct {
	Name            string   `json:"strategy_name"`
	Type            string   `json:"type,omitempty"`
	Market          string   `json:"market,omitempty"`
	Timeframe       string   `json:"timeframe,omitempty"`
	EntryConditions []string `json:"entry_conditions"`
	ExitConditions  []string `json:"exit_conditions,omitempty"`
	StopLoss        []string `json:"stop_loss,omitempty"`
	Indicators      []string `json:"technical_indicators,omitempty"`
}

// LoadFile loads rules from a single JSON file (an array of rule objects)
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rule file %s: %w", filepath.Base(path), err)
	}
	return rules, nil
}

// LoadDir loads every *.json rule file in dir and filters out rules with no
// parseable entry condition. Permanently-broken rules would otherwise
// inflate the denominator used for score percentages. Malformed files are
// logged and skipped, never fatal.
func LoadDir(dir string) ([]Rule, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing rule files: %w", err)
	}

	var all []Rule
	for _, f := range files {
		rules, err := LoadFile(f)
		if err != nil {
			log.Printf("[RULES] Skipping %s: %v", filepath.Base(f), err)
			continue
		}
		all = append(all, rules...)
	}

	executable := make([]Rule, 0, len(all))
	for _, r := range all {
		if r.Executable() {
			executable = append(executable, r)
		} else {
			log.Printf("[RULES] Excluding %q: no parseable entry condition", r.Name)
		}
	}

	log.Printf("[RULES] Loaded %d rules, %d executable", len(all), len(executable))
	return executable, nil
}

// Executable reports whether at least one entry condition parses
func (r Rule) Executable() bool {
	for _, cond := range r.EntryConditions {
		if _, ok := ParseCondition(cond); ok {
			return true
		}
	}
	return false
}
