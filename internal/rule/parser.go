package rule

import (
	"regexp"
	"strconv"
)

// Condition is a parsed comparison: left operand, operator, and either a
// numeric literal or a second operand name on the right.
type Condition struct {
	Left      string
	Operator  string
	Right     string  // raw right-hand token
	Value     float64 // literal value when IsLiteral
	IsLiteral bool
}

// conditionPattern matches "<operand> <op> <operand>" anywhere in the text.
// The operator class is deliberately wider than the supported set so that
// something like "!=" parses and then fails safe at evaluation.
var conditionPattern = regexp.MustCompile(`([A-Za-z0-9_]+)\s*([<>=!]+)\s*([A-Za-z0-9_.]+)`)

// ParseCondition parses a text condition like "RSI < 30" or
// "EMA_20 > EMA_50". Returns false for unparseable text; the caller skips
// the condition with a warning.
func ParseCondition(text string) (Condition, bool) {
	m := conditionPattern.FindStringSubmatch(text)
	if m == nil {
		return Condition{}, false
	}

	cond := Condition{
		Left:     m[1],
		Operator: m[2],
		Right:    m[3],
	}

	if v, err := strconv.ParseFloat(m[3], 64); err == nil {
		cond.Value = v
		cond.IsLiteral = true
	}
	return cond, true
}
