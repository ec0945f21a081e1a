package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/reconciler/model"
)

func TestDecide(t *testing.T) {
	testCases := []struct {
		description string
		status      model.MatchStatus
		confidence  float64
		expect      Decision
	}{
		{
			description: "mismatch",
			status:      model.MatchStatusMismatch,
			confidence:  0.90,
			expect:      Decision{NeedsEmail: true, Reason: ReasonMismatch, Severity: model.SeverityHigh, RuleName: "mismatch"},
		},
		{
			description: "mismatch wins over low confidence",
			status:      model.MatchStatusMismatch,
			confidence:  0.10,
			expect:      Decision{NeedsEmail: true, Reason: ReasonMismatch, Severity: model.SeverityHigh, RuleName: "mismatch"},
		},
		{
			description: "partial",
			status:      model.MatchStatusPartial,
			confidence:  0.99,
			expect:      Decision{NeedsEmail: true, Reason: ReasonPartial, Severity: model.SeverityMedium, RuleName: "partial"},
		},
		{
			description: "clean status low confidence",
			status:      model.MatchStatusMatch,
			confidence:  0.50,
			expect:      Decision{NeedsEmail: true, Reason: ReasonLowConfidence, Severity: model.SeverityLow, RuleName: "low_confidence"},
		},
		{
			description: "clean",
			status:      model.MatchStatusMatch,
			confidence:  0.95,
			expect:      Decision{NeedsEmail: false, Reason: ReasonClean, Severity: model.SeverityNone, RuleName: FallbackRule},
		},
		{
			description: "confidence equal to threshold is clean",
			status:      model.MatchStatusMatch,
			confidence:  0.75,
			expect:      Decision{NeedsEmail: false, Reason: ReasonClean, Severity: model.SeverityNone, RuleName: FallbackRule},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			result := &model.MatchResult{Status: tc.status, Confidence: tc.confidence}
			actual := Decide(result, 0.75)
			assert.Equal(t, tc.expect, actual)
			assert.Equal(t, actual, Decide(result, 0.75))
		})
	}
}

func TestDecide_EmailIffEscalation(t *testing.T) {
	for _, status := range model.MatchStatuses {
		for _, confidence := range []float64{0, 0.25, 0.5, 0.74, 0.75, 0.9, 1} {
			decision := Decide(&model.MatchResult{Status: status, Confidence: confidence}, 0.75)
			expect := status != model.MatchStatusMatch || confidence < 0.75
			assert.Equal(t, expect, decision.NeedsEmail, "%v %v", status, confidence)
			if decision.NeedsEmail {
				assert.NotEmpty(t, decision.Reason)
			}
		}
	}
}

func TestEngine_WithRule(t *testing.T) {
	engine, err := New(WithRule(AmountVarianceRule(100, 250)))
	require.NoError(t, err)

	var names []string
	for _, rule := range engine.Rules() {
		names = append(names, rule.Name)
	}
	assert.Equal(t, []string{"mismatch", "partial", "amount_variance", "low_confidence"}, names)

	testCases := []struct {
		description string
		result      *model.MatchResult
		expectRule  string
	}{
		{
			description: "partial still before variance",
			result:      &model.MatchResult{Status: model.MatchStatusPartial, Confidence: 0.9, Facts: map[string]interface{}{"amount_delta": 500.0}},
			expectRule:  "partial",
		},
		{
			description: "variance before low confidence",
			result:      &model.MatchResult{Status: model.MatchStatusMatch, Confidence: 0.4, Facts: map[string]interface{}{"amount_delta": -150}},
			expectRule:  "amount_variance",
		},
		{
			description: "variance below threshold",
			result:      &model.MatchResult{Status: model.MatchStatusMatch, Confidence: 0.9, Facts: map[string]interface{}{"amount_delta": "99.5"}},
			expectRule:  FallbackRule,
		},
		{
			description: "no amount fact",
			result:      &model.MatchResult{Status: model.MatchStatusMatch, Confidence: 0.4},
			expectRule:  "low_confidence",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expectRule, engine.Decide(tc.result, 0.75).RuleName)
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(WithRule(AmountVarianceRule(100, PriorityPartial)))
	assert.EqualError(t, err, "rule amount_variance: priority 200 already taken by partial")

	_, err = New(WithRule(&Rule{Name: "no_predicate", Priority: 1}))
	assert.Error(t, err)

	_, err = New(WithRule(&Rule{Name: "no_reason", Priority: 1, When: func(*model.MatchResult, float64) bool { return true }, Outcome: Outcome{NeedsEmail: true}}))
	assert.EqualError(t, err, "rule no_reason: email outcome requires a reason")
}
