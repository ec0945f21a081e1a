package model

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskFrozen is returned when a task is modified after its batch reached
	// a terminal status.
	ErrTaskFrozen = errors.New("task: batch already terminal")

	// ErrAlreadyMatched guards the single MatchResult per task.
	ErrAlreadyMatched = errors.New("task: match result already set")

	// ErrNotMatched is returned when a decision is recorded before matching.
	ErrNotMatched = errors.New("task: no match result")
)

// Invoice is one row of the batch handed to the engine.
type Invoice struct {
	InvoiceID  string `json:"invoice_id" yaml:"invoice_id"`
	PONumber   string `json:"po_number" yaml:"po_number"`
	VendorName string `json:"vendor_name" yaml:"vendor_name"`
}

// TaskState tracks how far a task progressed through the pipeline.
type TaskState string

const (
	TaskStatePlanned TaskState = "planned"
	TaskStateMatched TaskState = "matched"
	TaskStateDecided TaskState = "decided"
	TaskStateDrafted TaskState = "drafted"
	TaskStateErrored TaskState = "errored"
)

// Task reconciles one invoice/PO pair.
type Task struct {
	InvoiceID   string       `json:"invoice_id"`
	PONumber    string       `json:"po_number"`
	VendorName  string       `json:"vendor_name"`
	State       TaskState    `json:"state"`
	Match       *MatchResult `json:"match_result,omitempty"`
	NeedsEmail  bool         `json:"needs_email"`
	EmailReason string       `json:"email_reason,omitempty"`
	Severity    Severity     `json:"severity,omitempty"`
	Rule        string       `json:"rule,omitempty"`
	EmailDraft  *string      `json:"email_draft,omitempty"`
	Error       string       `json:"error,omitempty"`
	ErrorKind   string       `json:"error_kind,omitempty"`

	frozen bool
}

// NewTask creates a planned task for the invoice.
func NewTask(invoice Invoice) *Task {
	return &Task{
		InvoiceID:  invoice.InvoiceID,
		PONumber:   invoice.PONumber,
		VendorName: invoice.VendorName,
		State:      TaskStatePlanned,
	}
}

// Errored reports whether the task failed at any stage.
func (t *Task) Errored() bool { return t.State == TaskStateErrored }

// Frozen reports whether the task belongs to a terminal batch.
func (t *Task) Frozen() bool { return t.frozen }

// SetMatch attaches the matcher output. It may be called once.
func (t *Task) SetMatch(result *MatchResult) error {
	if t.frozen {
		return ErrTaskFrozen
	}
	if t.Match != nil {
		return ErrAlreadyMatched
	}
	if err := result.Validate(); err != nil {
		return err
	}
	t.Match = result
	t.State = TaskStateMatched
	return nil
}

// SetDecision records the fusion outcome.
func (t *Task) SetDecision(needsEmail bool, reason string, severity Severity, rule string) error {
	if t.frozen {
		return ErrTaskFrozen
	}
	if t.Match == nil {
		return ErrNotMatched
	}
	if needsEmail && reason == "" {
		return fmt.Errorf("task %v: email requested without reason", t.InvoiceID)
	}
	t.NeedsEmail = needsEmail
	t.EmailReason = reason
	t.Severity = severity
	t.Rule = rule
	t.State = TaskStateDecided
	return nil
}

// SetDraft stores the dispute email draft.
func (t *Task) SetDraft(draft string) error {
	if t.frozen {
		return ErrTaskFrozen
	}
	if !t.NeedsEmail {
		return fmt.Errorf("task %v: draft without email request", t.InvoiceID)
	}
	t.EmailDraft = &draft
	t.State = TaskStateDrafted
	return nil
}

// Fail marks the task errored; the match result, if any, is kept for the
// reviewer.
func (t *Task) Fail(kind string, err error) {
	if t.frozen || err == nil {
		return
	}
	t.State = TaskStateErrored
	t.ErrorKind = kind
	t.Error = err.Error()
}

func (t *Task) freeze() { t.frozen = true }
