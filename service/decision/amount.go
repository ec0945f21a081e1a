package decision

import (
	"math"

	"github.com/viant/reconciler/model"
)

// ReasonAmountVariance is the reason of AmountVarianceRule.
const ReasonAmountVariance = "Amount variance exceeds materiality threshold"

// AmountVarianceRule escalates when |amount_delta| exceeds threshold.
func AmountVarianceRule(threshold float64, priority int) *Rule {
	return &Rule{
		Name:     "amount_variance",
		Priority: priority,
		When: func(result *model.MatchResult, _ float64) bool {
			delta, ok := model.FactFloat(result.Facts, model.FactAmountDelta)
			return ok && math.Abs(delta) > threshold
		},
		Outcome: Outcome{NeedsEmail: true, Reason: ReasonAmountVariance, Severity: model.SeverityHigh},
	}
}
