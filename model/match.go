package model

import (
	"fmt"
	"math"
)

// MatchStatus is the matcher verdict for an invoice/PO pair.
type MatchStatus string

const (
	MatchStatusMatch    MatchStatus = "match"
	MatchStatusPartial  MatchStatus = "partial"
	MatchStatusMismatch MatchStatus = "mismatch"
)

// MatchStatuses lists every recognised status, in severity order.
var MatchStatuses = []MatchStatus{MatchStatusMatch, MatchStatusPartial, MatchStatusMismatch}

// IsValid reports whether s is a recognised status.
func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusMatch, MatchStatusPartial, MatchStatusMismatch:
		return true
	}
	return false
}

// Severity grades the action a decision proposes.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// MatchResult is produced once per task by the matcher capability and never
// mutated afterwards.
type MatchResult struct {
	Status      MatchStatus            `json:"status" yaml:"status"`
	Confidence  float64                `json:"confidence" yaml:"confidence"`
	Facts       map[string]interface{} `json:"facts,omitempty" yaml:"facts,omitempty"`
	Explanation string                 `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Validate checks the status and the confidence range.
func (m *MatchResult) Validate() error {
	if m == nil {
		return fmt.Errorf("match result was nil")
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("invalid match status %q", m.Status)
	}
	if math.IsNaN(m.Confidence) || math.IsInf(m.Confidence, 0) {
		return fmt.Errorf("confidence %v is not a finite number", m.Confidence)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", m.Confidence)
	}
	return nil
}

// Clone returns a deep enough copy for read-only sharing; facts values are
// copied shallowly.
func (m *MatchResult) Clone() *MatchResult {
	if m == nil {
		return nil
	}
	ret := *m
	if m.Facts != nil {
		ret.Facts = make(map[string]interface{}, len(m.Facts))
		for k, v := range m.Facts {
			ret.Facts[k] = v
		}
	}
	return &ret
}
