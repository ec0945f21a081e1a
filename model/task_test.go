package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_Lifecycle(t *testing.T) {
	task := NewTask(Invoice{InvoiceID: "INV1", PONumber: "PO1", VendorName: "Acme"})
	assert.Equal(t, TaskStatePlanned, task.State)

	assert.ErrorIs(t, task.SetDecision(false, "", SeverityNone, "clean"), ErrNotMatched)
	assert.Error(t, task.SetMatch(&MatchResult{Status: "unknown", Confidence: 0.5}))
	assert.Error(t, task.SetMatch(&MatchResult{Status: MatchStatusMatch, Confidence: 1.2}))

	require.NoError(t, task.SetMatch(&MatchResult{Status: MatchStatusPartial, Confidence: 0.7}))
	assert.ErrorIs(t, task.SetMatch(&MatchResult{Status: MatchStatusMatch, Confidence: 0.9}), ErrAlreadyMatched)
	assert.Equal(t, MatchStatusPartial, task.Match.Status)

	assert.Error(t, task.SetDraft("too early"))
	assert.EqualError(t, task.SetDecision(true, "", SeverityMedium, "partial"), "task INV1: email requested without reason")
	require.NoError(t, task.SetDecision(true, "Uncertain match requires clarification", SeverityMedium, "partial"))
	require.NoError(t, task.SetDraft("Dear Acme"))
	assert.Equal(t, TaskStateDrafted, task.State)

	task.freeze()
	assert.ErrorIs(t, task.SetDraft("again"), ErrTaskFrozen)
	task.Fail("CapabilityError", errors.New("late"))
	assert.False(t, task.Errored())
}

func TestTask_Fail(t *testing.T) {
	task := NewTask(Invoice{InvoiceID: "INV1", PONumber: "PO1"})
	task.Fail("ToolNotAllowed", nil)
	assert.False(t, task.Errored())
	task.Fail("ToolNotAllowed", errors.New("blocked"))
	assert.True(t, task.Errored())
	assert.Equal(t, "ToolNotAllowed", task.ErrorKind)
	assert.Equal(t, "blocked", task.Error)
}

func TestFacts(t *testing.T) {
	facts := map[string]interface{}{
		FactAmountDelta: "-12.5",
		FactVendorMatch: 0,
		FactHasGRN:      true,
		FactDaysDelta:   -31,
	}
	assert.Equal(t, 12.5, AmountDelta(facts))
	assert.Equal(t, 31.0, DaysDelta(facts))
	assert.False(t, FactBool(facts, FactVendorMatch, true))
	assert.True(t, FactBool(facts, FactPOMissing, true))
	assert.True(t, HasMaterialIssue(facts))
	assert.False(t, HasMaterialIssue(map[string]interface{}{FactAmountDelta: 0.005}))
}
