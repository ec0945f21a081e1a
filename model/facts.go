package model

import (
	"math"
	"strconv"
)

// Fact keys produced by the matcher.
const (
	FactAmountDelta = "amount_delta"
	FactVendorMatch = "vendor_match"
	FactPOMissing   = "po_missing"
	FactHasGRN      = "has_grn"
	FactDaysDelta   = "days_delta"
)

// AmountTolerance is the largest amount gap still treated as equal.
const AmountTolerance = 0.01

// TimingConcernDays is the invoice to GRN gap reported as a timing concern.
const TimingConcernDays = 30

// FactFloat returns a numeric fact; bools map to 0/1, strings are parsed.
func FactFloat(facts map[string]interface{}, key string) (float64, bool) {
	value, ok := facts[key]
	if !ok || value == nil {
		return 0, false
	}
	switch actual := value.(type) {
	case float64:
		return actual, true
	case float32:
		return float64(actual), true
	case int:
		return float64(actual), true
	case int64:
		return float64(actual), true
	case bool:
		if actual {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(actual, 64)
		return f, err == nil
	}
	return 0, false
}

// FactBool returns a boolean fact, or def when absent. Numbers are true when
// non zero.
func FactBool(facts map[string]interface{}, key string, def bool) bool {
	value, ok := facts[key]
	if !ok || value == nil {
		return def
	}
	if actual, ok := value.(bool); ok {
		return actual
	}
	if f, ok := FactFloat(facts, key); ok {
		return f != 0
	}
	return def
}

// AmountDelta returns the absolute invoice vs PO amount gap.
func AmountDelta(facts map[string]interface{}) float64 {
	delta, _ := FactFloat(facts, FactAmountDelta)
	return math.Abs(delta)
}

// DaysDelta returns the absolute invoice vs GRN day gap.
func DaysDelta(facts map[string]interface{}) float64 {
	delta, _ := FactFloat(facts, FactDaysDelta)
	return math.Abs(delta)
}

// HasMaterialIssue reports facts that make a pair a mismatch regardless of
// the classifier score.
func HasMaterialIssue(facts map[string]interface{}) bool {
	return FactBool(facts, FactPOMissing, false) ||
		!FactBool(facts, FactVendorMatch, true) ||
		AmountDelta(facts) > AmountTolerance ||
		!FactBool(facts, FactHasGRN, true)
}
