package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/reconciler/model"
	"github.com/viant/reconciler/policy"
	"github.com/viant/reconciler/progress"
	"github.com/viant/reconciler/service/approval"
	approvalMemory "github.com/viant/reconciler/service/approval/memory"
	"github.com/viant/reconciler/service/audit"
	auditMemory "github.com/viant/reconciler/service/audit/memory"
	"github.com/viant/reconciler/service/decision"
	"github.com/viant/reconciler/service/gateway"
	"github.com/viant/reconciler/service/planner"
	"github.com/viant/reconciler/service/workflow"
)

type fixture struct {
	runner    *workflow.Runner
	ledger    *audit.Ledger
	approvals approval.Service
}

func newFixture(t *testing.T, results map[string]*model.MatchResult, gatewayOptions []gateway.Option, options ...workflow.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	matcherFn := func(ctx context.Context, input *gateway.MatchInput) (interface{}, error) {
		result, ok := results[input.InvoiceID]
		if !ok {
			return nil, fmt.Errorf("scorer has no answer for %v", input.InvoiceID)
		}
		return result, nil
	}
	drafterFn := func(ctx context.Context, input *gateway.DraftInput) (string, error) {
		return fmt.Sprintf("draft %v %v", input.InvoiceID, input.Status), nil
	}
	registry, err := gateway.NewRegistry(gateway.NewMatcher(matcherFn), gateway.NewEmailDrafter(drafterFn))
	require.NoError(t, err)
	ledger, err := audit.NewLedger(ctx, auditMemory.New())
	require.NoError(t, err)
	gw, err := gateway.New(registry, append([]gateway.Option{gateway.WithRecorder(ledger)}, gatewayOptions...)...)
	require.NoError(t, err)
	approvals := approvalMemory.New(approvalMemory.WithRecorder(ledger))
	runner, err := workflow.New(gw, ledger, append([]workflow.Option{workflow.WithApprovals(approvals)}, options...)...)
	require.NoError(t, err)
	return &fixture{runner: runner, ledger: ledger, approvals: approvals}
}

func invoices(ids ...string) []model.Invoice {
	var ret []model.Invoice
	for _, id := range ids {
		ret = append(ret, model.Invoice{InvoiceID: id, PONumber: "PO-" + id, VendorName: "Vendor " + id})
	}
	return ret
}

func statuses(history []model.Transition) []model.Status {
	var ret []model.Status
	for _, transition := range history {
		ret = append(ret, transition.To)
	}
	return ret
}

func TestRunner_Run(t *testing.T) {
	testCases := []struct {
		description   string
		results       map[string]*model.MatchResult
		invoices      []model.Invoice
		gatewayOption []gateway.Option
		expectStatus  model.Status
		expectHistory []model.Status
		expectSummary model.Summary
		expectReasons map[string]string
		expectErrors  map[string]gateway.Kind
	}{
		{
			description:   "mismatch awaits approval",
			results:       map[string]*model.MatchResult{"INV1": {Status: model.MatchStatusMismatch, Confidence: 0.90}},
			invoices:      invoices("INV1"),
			expectStatus:  model.StatusApprovalAwaiting,
			expectHistory: []model.Status{model.StatusMatched, model.StatusEmailDrafted, model.StatusApprovalAwaiting},
			expectSummary: model.Summary{TotalInvoices: 1, Mismatches: 1, EmailsToSend: 1, ApprovalRequired: true},
			expectReasons: map[string]string{"INV1": decision.ReasonMismatch},
		},
		{
			description:   "low confidence clean status escalates",
			results:       map[string]*model.MatchResult{"INV1": {Status: model.MatchStatusMatch, Confidence: 0.50}},
			invoices:      invoices("INV1"),
			expectStatus:  model.StatusApprovalAwaiting,
			expectHistory: []model.Status{model.StatusMatched, model.StatusEmailDrafted, model.StatusApprovalAwaiting},
			expectSummary: model.Summary{TotalInvoices: 1, CleanMatches: 1, EmailsToSend: 1, ApprovalRequired: true},
			expectReasons: map[string]string{"INV1": decision.ReasonLowConfidence},
		},
		{
			description:   "clean match completes",
			results:       map[string]*model.MatchResult{"INV1": {Status: model.MatchStatusMatch, Confidence: 0.95}},
			invoices:      invoices("INV1"),
			expectStatus:  model.StatusCompleted,
			expectHistory: []model.Status{model.StatusMatched, model.StatusCompleted},
			expectSummary: model.Summary{TotalInvoices: 1, CleanMatches: 1},
			expectReasons: map[string]string{"INV1": decision.ReasonClean},
		},
		{
			description:   "empty batch completes",
			expectStatus:  model.StatusCompleted,
			expectHistory: []model.Status{model.StatusMatched, model.StatusCompleted},
			expectSummary: model.Summary{},
		},
		{
			description: "drafter blocked by policy",
			results: map[string]*model.MatchResult{
				"INV1": {Status: model.MatchStatusMismatch, Confidence: 0.9},
				"INV2": {Status: model.MatchStatusMatch, Confidence: 0.95},
			},
			invoices:      invoices("INV1", "INV2"),
			gatewayOption: []gateway.Option{gateway.WithPolicy(&policy.Policy{BlockList: []string{"email_drafter"}})},
			expectStatus:  model.StatusApprovalAwaiting,
			expectHistory: []model.Status{model.StatusMatched, model.StatusEmailDrafted, model.StatusApprovalAwaiting},
			expectSummary: model.Summary{TotalInvoices: 2, CleanMatches: 1, Mismatches: 1, EmailsToSend: 1, Errors: 1, ApprovalRequired: true},
			expectReasons: map[string]string{"INV1": decision.ReasonMismatch, "INV2": decision.ReasonClean},
			expectErrors:  map[string]gateway.Kind{"INV1": gateway.KindToolNotAllowed},
		},
		{
			description: "one matcher failure does not abort the batch",
			results: map[string]*model.MatchResult{
				"INV1": {Status: model.MatchStatusPartial, Confidence: 0.7},
				"INV3": {Status: model.MatchStatusMatch, Confidence: 0.99},
			},
			invoices:      invoices("INV1", "INV2", "INV3"),
			expectStatus:  model.StatusApprovalAwaiting,
			expectHistory: []model.Status{model.StatusMatched, model.StatusEmailDrafted, model.StatusApprovalAwaiting},
			expectSummary: model.Summary{TotalInvoices: 3, CleanMatches: 1, PartialMatches: 1, EmailsToSend: 1, Errors: 1, ApprovalRequired: true},
			expectReasons: map[string]string{"INV1": decision.ReasonPartial, "INV3": decision.ReasonClean},
			expectErrors:  map[string]gateway.Kind{"INV2": gateway.KindCapability},
		},
		{
			description: "non finite confidence errors the task",
			results: map[string]*model.MatchResult{
				"INV1": {Status: model.MatchStatusMatch, Confidence: math.NaN()},
				"INV2": {Status: model.MatchStatusMismatch, Confidence: 0.9},
			},
			invoices:      invoices("INV1", "INV2"),
			expectStatus:  model.StatusApprovalAwaiting,
			expectHistory: []model.Status{model.StatusMatched, model.StatusEmailDrafted, model.StatusApprovalAwaiting},
			expectSummary: model.Summary{TotalInvoices: 2, Mismatches: 1, EmailsToSend: 1, Errors: 1, ApprovalRequired: true},
			expectReasons: map[string]string{"INV2": decision.ReasonMismatch},
			expectErrors:  map[string]gateway.Kind{"INV1": gateway.KindCapability},
		},
		{
			description: "infinite confidences never count as clean",
			results: map[string]*model.MatchResult{
				"INV1": {Status: model.MatchStatusMatch, Confidence: math.Inf(1)},
				"INV2": {Status: model.MatchStatusMatch, Confidence: math.Inf(-1)},
			},
			invoices:      invoices("INV1", "INV2"),
			expectStatus:  model.StatusErrored,
			expectHistory: []model.Status{model.StatusErrored},
			expectSummary: model.Summary{TotalInvoices: 2, Errors: 2},
			expectErrors:  map[string]gateway.Kind{"INV1": gateway.KindCapability, "INV2": gateway.KindCapability},
		},
		{
			description:   "no task matched",
			invoices:      invoices("INV1", "INV2"),
			expectStatus:  model.StatusErrored,
			expectHistory: []model.Status{model.StatusErrored},
			expectSummary: model.Summary{TotalInvoices: 2, Errors: 2},
			expectErrors:  map[string]gateway.Kind{"INV1": gateway.KindCapability, "INV2": gateway.KindCapability},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, tc.results, tc.gatewayOption)
			wfCtx, err := f.runner.Run(ctx, &workflow.Request{
				DataLocation:  "/data",
				ModelLocation: "/model.yaml",
				Invoices:      tc.invoices,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expectStatus, wfCtx.Status)
			assert.Equal(t, tc.expectHistory, statuses(wfCtx.History))
			assert.Equal(t, tc.expectSummary, wfCtx.Summary)
			assert.Equal(t, model.Summarize(wfCtx.Tasks), wfCtx.Summary)

			for _, task := range wfCtx.Tasks {
				assert.True(t, task.Frozen())
				if kind, ok := tc.expectErrors[task.InvoiceID]; ok {
					assert.Equal(t, model.TaskStateErrored, task.State)
					assert.Equal(t, string(kind), task.ErrorKind)
					assert.NotEmpty(t, task.Error)
					continue
				}
				assert.Equal(t, tc.expectReasons[task.InvoiceID], task.EmailReason)
				if task.NeedsEmail {
					require.NotNil(t, task.EmailDraft)
					assert.Contains(t, *task.EmailDraft, task.InvoiceID)
				} else {
					assert.Nil(t, task.EmailDraft)
				}
			}

			pending, err := f.approvals.ListPending(ctx)
			require.NoError(t, err)
			if tc.expectSummary.ApprovalRequired {
				require.Len(t, pending, 1)
				assert.Equal(t, wfCtx.BatchID, pending[0].ID)
				assert.Equal(t, wfCtx.BatchID, wfCtx.ApprovalRequestID)
				assert.Equal(t, tc.expectSummary, pending[0].Summary)
			} else {
				assert.Empty(t, pending)
				assert.Empty(t, wfCtx.ApprovalRequestID)
			}

			transitions, err := f.ledger.List(ctx, audit.WithBatchID(wfCtx.BatchID), audit.WithActor(audit.ActorWorkflow))
			require.NoError(t, err)
			var audited []model.Status
			for _, entry := range transitions {
				if entry.Action == "transition" {
					audited = append(audited, model.Status(entry.Payload["to"].(string)))
				}
			}
			assert.Equal(t, tc.expectHistory, audited)
		})
	}
}

func TestRunner_AuditTrail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]*model.MatchResult{
		"INV1": {Status: model.MatchStatusMismatch, Confidence: 0.9, Facts: map[string]interface{}{"amount_delta": 12.0}},
	}, nil)
	wfCtx, err := f.runner.Run(ctx, &workflow.Request{BatchID: "batch-42", DataLocation: "/data", ModelLocation: "/model", Invoices: invoices("INV1")})
	require.NoError(t, err)
	assert.Equal(t, "batch-42", wfCtx.BatchID)

	trail, err := f.ledger.ByInvoice(ctx, "INV1")
	require.NoError(t, err)
	var actions []string
	for _, entry := range trail {
		actions = append(actions, entry.Actor+":"+entry.Action)
		assert.Equal(t, "batch-42", entry.BatchID)
	}
	assert.Equal(t, []string{"gateway:invoke:matcher", "decision:decide", "gateway:invoke:email_drafter"}, actions)
	assert.Equal(t, "mismatch", trail[1].Payload["rule"])
	assert.Equal(t, true, trail[1].Payload["needsEmail"])

	all, err := f.ledger.List(ctx)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Seq, all[i-1].Seq)
	}
}

func TestRunner_FrozenAfterTerminal(t *testing.T) {
	f := newFixture(t, map[string]*model.MatchResult{"INV1": {Status: model.MatchStatusPartial, Confidence: 0.7}}, nil)
	wfCtx, err := f.runner.Run(context.Background(), &workflow.Request{DataLocation: "/d", ModelLocation: "/m", Invoices: invoices("INV1")})
	require.NoError(t, err)
	task := wfCtx.Tasks[0]
	assert.ErrorIs(t, task.SetDraft("rewritten"), model.ErrTaskFrozen)
	assert.ErrorIs(t, task.SetMatch(&model.MatchResult{Status: model.MatchStatusMatch, Confidence: 1}), model.ErrTaskFrozen)
	assert.Error(t, wfCtx.Transition(model.StatusCompleted, wfCtx.History[0].At))
}

func TestRunner_BatchFaults(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	invalid := 1.5

	testCases := []struct {
		description string
		request     *workflow.Request
		expectErr   error
	}{
		{description: "nil request", expectErr: workflow.ErrInvalidRequest},
		{description: "confidence out of range", request: &workflow.Request{Invoices: invoices("INV1"), MinConfidence: &invalid}, expectErr: workflow.ErrInvalidRequest},
		{description: "duplicate invoice", request: &workflow.Request{Invoices: invoices("INV1", "INV1")}, expectErr: planner.ErrMalformedBatch},
		{description: "missing po", request: &workflow.Request{Invoices: []model.Invoice{{InvoiceID: "INV1"}}}, expectErr: planner.ErrMalformedBatch},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			wfCtx, err := f.runner.Run(ctx, tc.request)
			assert.ErrorIs(t, err, tc.expectErr)
			assert.Nil(t, wfCtx)
		})
	}
	entries, err := f.ledger.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunner_Parallel(t *testing.T) {
	results := map[string]*model.MatchResult{}
	var ids []string
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("INV%03d", i)
		ids = append(ids, id)
		status := model.MatchStatusMatch
		if i%4 == 0 {
			status = model.MatchStatusMismatch
		}
		results[id] = &model.MatchResult{Status: status, Confidence: 0.9}
	}
	var mux sync.Mutex
	var last progress.Snapshot
	f := newFixture(t, results, nil,
		workflow.WithWorkers(8),
		workflow.WithProgress(func(snapshot progress.Snapshot) {
			mux.Lock()
			defer mux.Unlock()
			// callbacks may arrive out of order; keep the most advanced one
			if advance(snapshot) >= advance(last) {
				last = snapshot
			}
		}))

	wfCtx, err := f.runner.Run(context.Background(), &workflow.Request{DataLocation: "/d", ModelLocation: "/m", Invoices: invoices(ids...)})
	require.NoError(t, err)
	assert.Equal(t, 40, wfCtx.Summary.TotalInvoices)
	assert.Equal(t, 10, wfCtx.Summary.Mismatches)
	assert.Equal(t, 30, wfCtx.Summary.CleanMatches)
	assert.Equal(t, 10, wfCtx.Summary.EmailsToSend)
	for i, task := range wfCtx.Tasks {
		assert.Equal(t, ids[i], task.InvoiceID)
	}

	mux.Lock()
	defer mux.Unlock()
	assert.Equal(t, 40, last.TotalTasks)
	assert.Equal(t, 40, last.MatchedTasks)
	assert.Equal(t, 10, last.DraftedTasks)
	assert.Equal(t, 0, last.PendingTasks)
}

func advance(s progress.Snapshot) int {
	return s.TotalTasks + s.MatchedTasks + s.DecidedTasks + s.DraftedTasks + s.FailedTasks
}

func TestRunner_MinConfidenceOverride(t *testing.T) {
	f := newFixture(t, map[string]*model.MatchResult{"INV1": {Status: model.MatchStatusMatch, Confidence: 0.8}}, nil)
	strict := 0.9
	wfCtx, err := f.runner.Run(context.Background(), &workflow.Request{DataLocation: "/d", ModelLocation: "/m", Invoices: invoices("INV1"), MinConfidence: &strict})
	require.NoError(t, err)
	assert.True(t, wfCtx.Tasks[0].NeedsEmail)
	assert.Equal(t, decision.ReasonLowConfidence, wfCtx.Tasks[0].EmailReason)

	_, err = workflow.New(nil, nil)
	assert.True(t, err != nil && !errors.Is(err, workflow.ErrInvalidRequest))
}

// failingRecorder rejects entries matching fail and delegates the rest.
type failingRecorder struct {
	audit.Recorder
	fail func(entry *audit.Entry) bool
}

func (r *failingRecorder) Record(ctx context.Context, entry *audit.Entry) (*audit.Entry, error) {
	if r.fail(entry) {
		return nil, errors.New("audit store unavailable")
	}
	return r.Recorder.Record(ctx, entry)
}

func TestRunner_AuditFailure(t *testing.T) {
	testCases := []struct {
		description string
		fail        func(entry *audit.Entry) bool
		expectError string
	}{
		{
			description: "decision entry lost",
			fail: func(entry *audit.Entry) bool {
				return entry.Action == "decide" && entry.InvoiceID == "INV1"
			},
			expectError: "failed to audit decide",
		},
		{
			description: "gateway entry lost",
			fail: func(entry *audit.Entry) bool {
				return entry.Action == "invoke:matcher" && entry.InvoiceID == "INV1"
			},
			expectError: gateway.ErrAuditFailed.Error(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			ctx := context.Background()
			ledger, err := audit.NewLedger(ctx, auditMemory.New())
			require.NoError(t, err)
			recorder := &failingRecorder{Recorder: ledger, fail: tc.fail}
			matcherFn := func(ctx context.Context, input *gateway.MatchInput) (interface{}, error) {
				return &model.MatchResult{Status: model.MatchStatusMatch, Confidence: 0.95}, nil
			}
			drafterFn := func(ctx context.Context, input *gateway.DraftInput) (string, error) {
				return "draft", nil
			}
			registry, err := gateway.NewRegistry(gateway.NewMatcher(matcherFn), gateway.NewEmailDrafter(drafterFn))
			require.NoError(t, err)
			gw, err := gateway.New(registry, gateway.WithRecorder(recorder))
			require.NoError(t, err)
			runner, err := workflow.New(gw, recorder)
			require.NoError(t, err)

			wfCtx, err := runner.Run(ctx, &workflow.Request{DataLocation: "/d", ModelLocation: "/m", Invoices: invoices("INV1", "INV2")})
			require.NoError(t, err)
			failed, clean := wfCtx.Tasks[0], wfCtx.Tasks[1]
			assert.Equal(t, model.TaskStateErrored, failed.State)
			assert.Equal(t, "InternalError", failed.ErrorKind)
			assert.Contains(t, failed.Error, tc.expectError)
			assert.Equal(t, model.TaskStateDecided, clean.State)
			assert.Equal(t, 1, wfCtx.Summary.Errors)
			assert.Equal(t, 1, wfCtx.Summary.CleanMatches)
		})
	}
}
