package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/viant/reconciler/internal/clock"
	"github.com/viant/reconciler/internal/idgen"
	"github.com/viant/reconciler/model"
	"github.com/viant/reconciler/progress"
	"github.com/viant/reconciler/service/approval"
	"github.com/viant/reconciler/service/audit"
	"github.com/viant/reconciler/service/decision"
	"github.com/viant/reconciler/service/gateway"
	"github.com/viant/reconciler/service/planner"
	"github.com/viant/reconciler/tracing"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidRequest is returned for batch level faults detected before any
// task exists.
var ErrInvalidRequest = errors.New("invalid batch request")

// Error kind recorded on tasks failing outside the gateway.
const kindInternal = "InternalError"

// Request describes one batch run.
type Request struct {
	BatchID       string
	DataLocation  string
	ModelLocation string
	Invoices      []model.Invoice
	// MinConfidence overrides the runner default when set.
	MinConfidence *float64
}

// Runner drives batches through the state machine.
type Runner struct {
	gateway       *gateway.Gateway
	recorder      audit.Recorder
	engine        *decision.Engine
	approvals     approval.Service
	workers       int
	minConfidence float64
	logger        zerolog.Logger
	onProgress    func(progress.Snapshot)
}

// New creates a runner.
func New(gw *gateway.Gateway, recorder audit.Recorder, options ...Option) (*Runner, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway was nil")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder was nil")
	}
	ret := &Runner{
		gateway:       gw,
		recorder:      recorder,
		workers:       DefaultWorkers,
		minConfidence: DefaultMinConfidence,
		logger:        zerolog.Nop(),
	}
	for _, option := range options {
		option(ret)
	}
	if ret.engine == nil {
		var err error
		if ret.engine, err = decision.New(); err != nil {
			return nil, err
		}
	}
	if ret.workers <= 0 {
		ret.workers = DefaultWorkers
	}
	if err := checkConfidence(ret.minConfidence); err != nil {
		return nil, err
	}
	return ret, nil
}

// Run plans the batch, matches and decides every task, drafts the emails
// decided on and stops at the approval gate. A non nil error means no task
// was created.
func (r *Runner) Run(ctx context.Context, request *Request) (wfCtx *model.WorkflowContext, err error) {
	if request == nil {
		return nil, fmt.Errorf("%w: request was nil", ErrInvalidRequest)
	}
	minConfidence := r.minConfidence
	if request.MinConfidence != nil {
		minConfidence = *request.MinConfidence
	}
	if err = checkConfidence(minConfidence); err != nil {
		return nil, err
	}
	tasks, err := planner.Plan(request.Invoices)
	if err != nil {
		return nil, err
	}

	batchID := request.BatchID
	if batchID == "" {
		batchID = idgen.NewWithPrefix("batch-")
	}
	ctx, span := tracing.StartSpan(ctx, "workflow.run", tracing.KindInternal)
	span.WithAttributes(map[string]string{"batch.id": batchID})
	defer func() { tracing.EndSpan(span, err) }()

	ctx = audit.WithScope(ctx, audit.Scope{BatchID: batchID})
	tracker := progress.New(batchID, r.onProgress)
	ctx = progress.WithTracker(ctx, tracker)
	tracker.Update(progress.Delta{Total: len(tasks), Pending: len(tasks)})

	wfCtx = model.NewWorkflowContext(batchID, tasks)
	_ = r.audit(ctx, "", "plan", map[string]interface{}{
		"tasks":         len(tasks),
		"minConfidence": minConfidence,
		"dataLocation":  request.DataLocation,
		"modelLocation": request.ModelLocation,
	})
	log := r.logger.With().Str("batch_id", batchID).Logger()
	log.Info().Int("tasks", len(tasks)).Msg("batch planned")

	r.forEach(ctx, tasks, func(ctx context.Context, task *model.Task) {
		r.matchTask(ctx, task, request, minConfidence)
	})

	if len(tasks) > 0 && wfCtx.Matched() == 0 {
		wfCtx.Summarize()
		if err = r.transition(ctx, wfCtx, model.StatusErrored); err != nil {
			return nil, err
		}
		log.Warn().Int("tasks", len(tasks)).Msg("no task could be matched")
		return wfCtx, nil
	}
	if err = r.transition(ctx, wfCtx, model.StatusMatched); err != nil {
		return nil, err
	}

	var toDraft []*model.Task
	for _, task := range tasks {
		if task.NeedsEmail && !task.Errored() {
			toDraft = append(toDraft, task)
		}
	}
	if len(toDraft) > 0 {
		r.forEach(ctx, toDraft, r.draftTask)
		if err = r.transition(ctx, wfCtx, model.StatusEmailDrafted); err != nil {
			return nil, err
		}
	}

	if err = r.approvalGate(ctx, wfCtx); err != nil {
		return nil, err
	}
	log.Info().
		Str("status", string(wfCtx.Status)).
		Int("emails_to_send", wfCtx.Summary.EmailsToSend).
		Int("mismatches", wfCtx.Summary.Mismatches).
		Int("errors", wfCtx.Summary.Errors).
		Msg("batch finished")
	return wfCtx, nil
}

// forEach runs fn for every task, bounded by r.workers, and returns once all
// of them finished.
func (r *Runner) forEach(ctx context.Context, tasks []*model.Task, fn func(ctx context.Context, task *model.Task)) {
	var group errgroup.Group
	group.SetLimit(r.workers)
	for _, task := range tasks {
		group.Go(func() error {
			scope := audit.ScopeFrom(ctx)
			scope.InvoiceID = task.InvoiceID
			fn(audit.WithScope(ctx, scope), task)
			return nil
		})
	}
	_ = group.Wait()
}

func (r *Runner) matchTask(ctx context.Context, task *model.Task, request *Request, minConfidence float64) {
	result, err := r.gateway.Match(ctx, &gateway.MatchInput{
		InvoiceID:     task.InvoiceID,
		PONumber:      task.PONumber,
		DataLocation:  request.DataLocation,
		ModelLocation: request.ModelLocation,
	})
	if err != nil {
		r.fail(ctx, task, err)
		return
	}
	if err = task.SetMatch(result); err != nil {
		r.fail(ctx, task, err)
		return
	}
	progress.UpdateCtx(ctx, progress.Delta{Matched: 1})

	outcome := r.engine.Decide(result, minConfidence)
	if err = task.SetDecision(outcome.NeedsEmail, outcome.Reason, outcome.Severity, outcome.RuleName); err != nil {
		r.fail(ctx, task, err)
		return
	}
	if err = r.audit(ctx, task.InvoiceID, "decide", map[string]interface{}{
		"status":        string(result.Status),
		"confidence":    result.Confidence,
		"minConfidence": minConfidence,
		"needsEmail":    outcome.NeedsEmail,
		"reason":        outcome.Reason,
		"severity":      string(outcome.Severity),
		"rule":          outcome.RuleName,
	}); err != nil {
		r.fail(ctx, task, err)
		return
	}
	delta := progress.Delta{Decided: 1}
	if !outcome.NeedsEmail {
		delta.Pending = -1
	}
	progress.UpdateCtx(ctx, delta)
}

func (r *Runner) draftTask(ctx context.Context, task *model.Task) {
	draft, err := r.gateway.DraftEmail(ctx, &gateway.DraftInput{
		VendorName: task.VendorName,
		InvoiceID:  task.InvoiceID,
		PONumber:   task.PONumber,
		Facts:      task.Match.Facts,
		Status:     task.Match.Status,
	})
	if err != nil {
		r.fail(ctx, task, err)
		return
	}
	if err = task.SetDraft(draft); err != nil {
		r.fail(ctx, task, err)
		return
	}
	progress.UpdateCtx(ctx, progress.Delta{Drafted: 1, Pending: -1})
}

func (r *Runner) fail(ctx context.Context, task *model.Task, err error) {
	kind := kindInternal
	if gwKind, ok := gateway.KindOf(err); ok {
		kind = string(gwKind)
	}
	task.Fail(kind, err)
	progress.UpdateCtx(ctx, progress.Delta{Failed: 1, Pending: -1})
	r.logger.Warn().Err(err).Str("invoice_id", task.InvoiceID).Str("kind", kind).Msg("task errored")
}

func (r *Runner) approvalGate(ctx context.Context, wfCtx *model.WorkflowContext) error {
	summary := wfCtx.Summarize()
	target := model.StatusCompleted
	if summary.ApprovalRequired {
		target = model.StatusApprovalAwaiting
		if r.approvals != nil {
			request := &approval.Request{
				ID:      wfCtx.BatchID,
				BatchID: wfCtx.BatchID,
				Summary: summary,
				Reasons: reasons(wfCtx.Tasks),
			}
			if err := r.approvals.RequestApproval(ctx, request); err != nil {
				r.logger.Error().Err(err).Str("batch_id", wfCtx.BatchID).Msg("failed to file approval request")
			} else {
				wfCtx.ApprovalRequestID = request.ID
			}
		}
	}
	_ = r.audit(ctx, "", "approval_gate", map[string]interface{}{
		"totalInvoices":    summary.TotalInvoices,
		"cleanMatches":     summary.CleanMatches,
		"partialMatches":   summary.PartialMatches,
		"mismatches":       summary.Mismatches,
		"emailsToSend":     summary.EmailsToSend,
		"errors":           summary.Errors,
		"approvalRequired": summary.ApprovalRequired,
	})
	return r.transition(ctx, wfCtx, target)
}

func (r *Runner) transition(ctx context.Context, wfCtx *model.WorkflowContext, to model.Status) error {
	from := wfCtx.Status
	if err := wfCtx.Transition(to, clock.Now()); err != nil {
		return err
	}
	_ = r.audit(ctx, "", "transition", map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	})
	r.logger.Debug().Str("batch_id", wfCtx.BatchID).Str("from", string(from)).Str("to", string(to)).Msg("transition")
	return nil
}

// audit records a workflow entry. Batch level callers only log a failure; a
// task level caller fails the task.
func (r *Runner) audit(ctx context.Context, invoiceID, action string, payload map[string]interface{}) error {
	actor := audit.ActorWorkflow
	if action == "decide" {
		actor = audit.ActorDecision
	}
	entry := &audit.Entry{
		Actor:     actor,
		Action:    action,
		InvoiceID: invoiceID,
		BatchID:   audit.ScopeFrom(ctx).BatchID,
		Payload:   payload,
	}
	if _, err := r.recorder.Record(ctx, entry); err != nil {
		r.logger.Error().Err(err).Str("action", action).Str("invoice_id", invoiceID).Msg("failed to audit workflow event")
		return fmt.Errorf("failed to audit %v: %w", action, err)
	}
	return nil
}

func reasons(tasks []*model.Task) map[string]string {
	ret := map[string]string{}
	for _, task := range tasks {
		switch {
		case task.Errored():
			ret[task.InvoiceID] = task.Error
		case task.NeedsEmail:
			ret[task.InvoiceID] = task.EmailReason
		}
	}
	return ret
}

func checkConfidence(value float64) error {
	if value < 0 || value > 1 || math.IsNaN(value) {
		return fmt.Errorf("%w: min confidence %v outside [0,1]", ErrInvalidRequest, value)
	}
	return nil
}
