package matcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/reconciler/model"
)

func TestClassify(t *testing.T) {
	clean := map[string]interface{}{"amount_delta": 0.0, "vendor_match": true, "po_missing": false, "has_grn": true, "days_delta": 3}
	testCases := []struct {
		description string
		probability float64
		facts       map[string]interface{}
		status      model.MatchStatus
		confidence  float64
		explanation string
	}{
		{
			description: "clean low probability",
			probability: 0.1,
			facts:       clean,
			status:      model.MatchStatusMatch,
			confidence:  0.9,
			explanation: "Clean match with no material differences. Confidence: 0.90",
		},
		{
			description: "partial band",
			probability: 0.65,
			facts:       clean,
			status:      model.MatchStatusPartial,
			confidence:  0.65,
			explanation: "Uncertain match requiring review (confidence: 0.65). Model suggests possible issues.",
		},
		{
			description: "mismatch band",
			probability: 0.85,
			facts:       clean,
			status:      model.MatchStatusMismatch,
			confidence:  0.85,
			explanation: "Model detected potential mismatch (confidence: 0.85). Manual review recommended.",
		},
		{
			description: "material issues force mismatch",
			probability: 0.2,
			facts:       map[string]interface{}{"amount_delta": 125.5, "vendor_match": 0, "has_grn": false},
			status:      model.MatchStatusMismatch,
			confidence:  0.2,
			explanation: "Mismatch detected: Vendor on invoice does not match vendor on PO; Amount discrepancy of 125.50; No GRN found for this PO. Confidence: 0.20",
		},
		{
			description: "timing concern only",
			probability: 0.3,
			facts:       map[string]interface{}{"days_delta": -45},
			status:      model.MatchStatusMatch,
			confidence:  0.7,
			explanation: "Match confirmed despite minor issues: Invoice timing concern: 45 days from GRN. Confidence: 0.70",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			actual, err := Classify(tc.probability, tc.facts)
			require.NoError(t, err)
			assert.Equal(t, tc.status, actual.Status)
			assert.InDelta(t, tc.confidence, actual.Confidence, 1e-9)
			assert.Equal(t, tc.explanation, actual.Explanation)
			assert.NoError(t, actual.Validate())
		})
	}
}

func TestClassify_RejectsInvalidProbability(t *testing.T) {
	testCases := []struct {
		description string
		probability float64
	}{
		{description: "nan", probability: math.NaN()},
		{description: "positive infinity", probability: math.Inf(1)},
		{description: "negative infinity", probability: math.Inf(-1)},
		{description: "above one", probability: 1.2},
		{description: "below zero", probability: -0.1},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			actual, err := Classify(tc.probability, map[string]interface{}{})
			assert.Error(t, err)
			assert.Nil(t, actual)
		})
	}
}

func TestNotFound(t *testing.T) {
	actual := NotFound()
	assert.Equal(t, model.MatchStatusPartial, actual.Status)
	assert.Equal(t, 0.5, actual.Confidence)
	assert.Equal(t, NotFoundExplanation, actual.Explanation)
}

func TestModel_Probability(t *testing.T) {
	m := &Model{Intercept: 0, Weights: map[string]float64{"amount_delta": 1}}
	assert.InDelta(t, 0.5, m.Probability(map[string]interface{}{}), 1e-9)
	assert.Greater(t, m.Probability(map[string]interface{}{"amount_delta": 5}), 0.99)
}
