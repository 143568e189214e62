package rule

import (
	"log"
	"strings"

	"scout/internal/indicator"
)

// Evaluate runs a rule's entry conditions against the frame and returns one
// boolean per bar (true = entry signal at that row).
//
// Conditions are ANDed together. A condition that doesn't parse or whose
// operands can't be resolved is skipped; if no condition at all was usable
// the rule is inapplicable and evaluates to all-false, so a broken rule can
// never signal.
func Evaluate(f *indicator.Frame, r Rule) []bool {
	n := f.Len()
	signals := make([]bool, n)
	if n == 0 {
		return signals
	}
	for i := range signals {
		signals[i] = true
	}

	foundValid := false
	for _, text := range r.EntryConditions {
		cond, ok := ParseCondition(text)
		if !ok {
			log.Printf("[RULES] %s: unparseable condition %q", r.Name, text)
			continue
		}

		leftCol, ok := Resolve(f, cond.Left)
		if !ok {
			// RRR is a planning-time quantity, not a time-series column;
			// its absence is expected.
			if strings.ToUpper(cond.Left) != "RRR" {
				log.Printf("[RULES] %s: operand %q not found", r.Name, cond.Left)
			}
			continue
		}
		left, _ := f.Column(leftCol)

		var right []float64
		if !cond.IsLiteral {
			rightCol, ok := Resolve(f, cond.Right)
			if !ok {
				if strings.ToUpper(cond.Right) != "RRR" {
					log.Printf("[RULES] %s: operand %q not found", r.Name, cond.Right)
				}
				continue
			}
			right, _ = f.Column(rightCol)
		}

		for i := 0; i < n; i++ {
			rv := cond.Value
			if right != nil {
				rv = right[i]
			}
			signals[i] = signals[i] && compare(left[i], cond.Operator, rv)
		}
		foundValid = true
	}

	if !foundValid {
		return make([]bool, n)
	}
	return signals
}

// compare applies an operator elementwise. Unknown operators fail safe
// (false), and NaN operands never satisfy any comparison.
func compare(a float64, op string, b float64) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	case "==":
		return a == b
	default:
		return false
	}
}
