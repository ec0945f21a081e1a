package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/viant/reconciler/model"
)

// Probability thresholds applied when no material issue is present.
const (
	MismatchThreshold = 0.8
	PartialThreshold  = 0.6
)

// NotFoundExplanation explains the verdict for a pair without feature row.
const NotFoundExplanation = "No features available for this pair."

// NotFound is the verdict for a pair the scorer knows nothing about.
func NotFound() *model.MatchResult {
	return &model.MatchResult{
		Status:      model.MatchStatusPartial,
		Confidence:  0.5,
		Facts:       map[string]interface{}{},
		Explanation: NotFoundExplanation,
	}
}

// Classify turns a mismatch probability and facts into a match result. A
// probability that is not a finite number in [0,1] is an error.
func Classify(mismatchProbability float64, facts map[string]interface{}) (*model.MatchResult, error) {
	if math.IsNaN(mismatchProbability) || math.IsInf(mismatchProbability, 0) ||
		mismatchProbability < 0 || mismatchProbability > 1 {
		return nil, fmt.Errorf("mismatch probability %v is not a finite number in [0,1]", mismatchProbability)
	}
	ret := &model.MatchResult{Facts: facts}
	switch {
	case model.HasMaterialIssue(facts), mismatchProbability >= MismatchThreshold:
		ret.Status = model.MatchStatusMismatch
		ret.Confidence = mismatchProbability
	case mismatchProbability >= PartialThreshold:
		ret.Status = model.MatchStatusPartial
		ret.Confidence = mismatchProbability
	default:
		ret.Status = model.MatchStatusMatch
		ret.Confidence = 1 - mismatchProbability
	}
	ret.Explanation = Explain(facts, ret.Status, ret.Confidence)
	return ret, nil
}

// Issues lists human readable findings in facts.
func Issues(facts map[string]interface{}) []string {
	var issues []string
	if model.FactBool(facts, model.FactPOMissing, false) {
		issues = append(issues, "PO reference was not found")
	}
	if !model.FactBool(facts, model.FactVendorMatch, true) {
		issues = append(issues, "Vendor on invoice does not match vendor on PO")
	}
	if delta := model.AmountDelta(facts); delta > model.AmountTolerance {
		issues = append(issues, fmt.Sprintf("Amount discrepancy of %.2f", delta))
	}
	if !model.FactBool(facts, model.FactHasGRN, true) {
		issues = append(issues, "No GRN found for this PO")
	}
	if days := model.DaysDelta(facts); days > model.TimingConcernDays {
		issues = append(issues, fmt.Sprintf("Invoice timing concern: %v days from GRN", days))
	}
	return issues
}

// Explain builds the reviewer facing explanation of a verdict.
func Explain(facts map[string]interface{}, status model.MatchStatus, confidence float64) string {
	issues := strings.Join(Issues(facts), "; ")
	switch status {
	case model.MatchStatusMismatch:
		if issues != "" {
			return fmt.Sprintf("Mismatch detected: %s. Confidence: %.2f", issues, confidence)
		}
		return fmt.Sprintf("Model detected potential mismatch (confidence: %.2f). Manual review recommended.", confidence)
	case model.MatchStatusPartial:
		if issues == "" {
			issues = "Model suggests possible issues."
		}
		return fmt.Sprintf("Uncertain match requiring review (confidence: %.2f). %s", confidence, issues)
	}
	if issues != "" {
		return fmt.Sprintf("Match confirmed despite minor issues: %s. Confidence: %.2f", issues, confidence)
	}
	return fmt.Sprintf("Clean match with no material differences. Confidence: %.2f", confidence)
}
