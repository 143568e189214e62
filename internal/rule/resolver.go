package rule

import (
	"strings"

	"scout/internal/indicator"
)

// aliasRule maps a keyword test on the requested name to a keyword test on
// candidate column names. These cover operands the substring pass can't
// handle: percentage signs, multi-letter acronyms, versioned suffixes.
type aliasRule struct {
	requested func(string) bool // upper-cased requested name
	column    func(string) bool // raw candidate column name
}

var aliasRules = []aliasRule{
	{ // stochastic %K
		requested: func(s string) bool { return strings.Contains(s, "STOCH") || strings.Contains(s, "%K") },
		column:    func(c string) bool { return strings.Contains(c, "STOCHk") },
	},
	{ // stochastic %D
		requested: func(s string) bool { return strings.Contains(s, "%D") },
		column:    func(c string) bool { return strings.Contains(c, "STOCHd") },
	},
	{ // average true range
		requested: func(s string) bool { return strings.Contains(s, "ATR") },
		column:    func(c string) bool { return strings.Contains(c, "ATRr") },
	},
	{ // trend strength
		requested: func(s string) bool { return strings.Contains(s, "ADX") },
		column:    func(c string) bool { return strings.Contains(c, "ADX_") },
	},
	{ // Williams %R
		requested: func(s string) bool { return strings.Contains(s, "WILLIAMS") || strings.Contains(s, "%R") },
		column:    func(c string) bool { return strings.Contains(c, "WILLR") },
	},
	{ // volume moving average
		requested: func(s string) bool {
			return strings.Contains(s, "VOLUME") && (strings.Contains(s, "AVG") || strings.Contains(s, "SMA"))
		},
		column: func(c string) bool { return strings.Contains(c, "VOL_SMA") },
	},
	{ // closing price
		requested: func(s string) bool { return strings.Contains(s, "CLOSE") || strings.Contains(s, "PRICE") },
		column:    func(c string) bool { return c == "Close" },
	},
}

// Resolve maps a free-text operand name to a concrete frame column.
// Strategy, in order, first match wins:
//  1. case-insensitive exact match
//  2. case-insensitive substring match (name inside a column name)
//  3. category alias rules
//
// Not-found means the condition is unusable, not an error: one unresolvable
// operand invalidates only the rule that referenced it.
func Resolve(f *indicator.Frame, name string) (string, bool) {
	upper := strings.ToUpper(name)

	for _, col := range f.Columns() {
		if strings.ToUpper(col) == upper {
			return col, true
		}
	}

	for _, col := range f.Columns() {
		if strings.Contains(strings.ToUpper(col), upper) {
			return col, true
		}
	}

	for _, alias := range aliasRules {
		if !alias.requested(upper) {
			continue
		}
		for _, col := range f.Columns() {
			if alias.column(col) {
				return col, true
			}
		}
	}

	return "", false
}
