package model

import (
	"fmt"
	"time"
)

// Status is the batch level workflow state.
type Status string

const (
	StatusPlanned          Status = "PLANNED"
	StatusMatched          Status = "MATCHED"
	StatusEmailDrafted     Status = "EMAIL_DRAFTED"
	StatusApprovalAwaiting Status = "APPROVAL_AWAITING"
	StatusCompleted        Status = "COMPLETED"
	StatusErrored          Status = "ERRORED"
)

var transitions = map[Status][]Status{
	StatusPlanned:      {StatusMatched, StatusErrored},
	StatusMatched:      {StatusEmailDrafted, StatusApprovalAwaiting, StatusCompleted, StatusErrored},
	StatusEmailDrafted: {StatusApprovalAwaiting, StatusCompleted, StatusErrored},
}

// IsTerminal returns true when no further transition is allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApprovalAwaiting, StatusCompleted, StatusErrored:
		return true
	}
	return false
}

// CanTransition reports whether s -> to is a forward edge of the machine.
func (s Status) CanTransition(to Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Transition is one recorded status change.
type Transition struct {
	From Status    `json:"from"`
	To   Status    `json:"to"`
	At   time.Time `json:"at"`
}

// Summary aggregates per task outcomes at the approval gate.
type Summary struct {
	TotalInvoices    int  `json:"total_invoices"`
	CleanMatches     int  `json:"clean_matches"`
	PartialMatches   int  `json:"partial_matches"`
	Mismatches       int  `json:"mismatches"`
	EmailsToSend     int  `json:"emails_to_send"`
	Errors           int  `json:"errors"`
	ApprovalRequired bool `json:"approval_required"`
}

// Summarize recomputes the summary from the task collection.
// Errored tasks never count as clean matches; their status counts are kept
// when the matcher had already answered.
func Summarize(tasks []*Task) Summary {
	ret := Summary{TotalInvoices: len(tasks)}
	for _, task := range tasks {
		if task.Errored() {
			ret.Errors++
		}
		if task.NeedsEmail {
			ret.EmailsToSend++
		}
		if task.Match == nil {
			continue
		}
		switch task.Match.Status {
		case MatchStatusMatch:
			if !task.Errored() {
				ret.CleanMatches++
			}
		case MatchStatusPartial:
			ret.PartialMatches++
		case MatchStatusMismatch:
			ret.Mismatches++
		}
	}
	ret.ApprovalRequired = ret.EmailsToSend > 0 || ret.Mismatches > 0
	return ret
}

// WorkflowContext is the boundary artifact of one batch run.
type WorkflowContext struct {
	BatchID           string       `json:"batch_id"`
	Tasks             []*Task      `json:"tasks"`
	Summary           Summary      `json:"summary"`
	Status            Status       `json:"status"`
	History           []Transition `json:"history,omitempty"`
	ApprovalRequestID string       `json:"approval_request_id,omitempty"`
}

// NewWorkflowContext returns a PLANNED context for the tasks.
func NewWorkflowContext(batchID string, tasks []*Task) *WorkflowContext {
	return &WorkflowContext{BatchID: batchID, Tasks: tasks, Status: StatusPlanned}
}

// Transition moves the context forward. Reaching a terminal status freezes
// every task.
func (c *WorkflowContext) Transition(to Status, at time.Time) error {
	if !c.Status.CanTransition(to) {
		return fmt.Errorf("invalid transition %v -> %v", c.Status, to)
	}
	c.History = append(c.History, Transition{From: c.Status, To: to, At: at})
	c.Status = to
	if to.IsTerminal() {
		for _, task := range c.Tasks {
			task.freeze()
		}
	}
	return nil
}

// Summarize refreshes c.Summary from c.Tasks.
func (c *WorkflowContext) Summarize() Summary {
	c.Summary = Summarize(c.Tasks)
	return c.Summary
}

// Matched returns the number of tasks holding a match result.
func (c *WorkflowContext) Matched() int {
	count := 0
	for _, task := range c.Tasks {
		if task.Match != nil {
			count++
		}
	}
	return count
}
