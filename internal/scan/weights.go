package scan

import "strings"

// Rule-category weights. Momentum setups have historically been the
// strongest signals in this universe, so they count for more than a plain
// hit.
var categoryWeights = []struct {
	keywords []string
	weight   float64
}{
	{[]string{"stoch", "rsi", "macd", "williams"}, 1.5}, // momentum
	{[]string{"atr", "bollinger"}, 1.2},                 // volatility
	{[]string{"volume", "obv"}, 1.0},                    // volume
}

// WeightFor returns the scoring weight for a rule by name
func WeightFor(ruleName string) float64 {
	lower := strings.ToLower(ruleName)
	for _, cat := range categoryWeights {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.weight
			}
		}
	}
	return 1.0
}
