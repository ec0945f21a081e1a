package gateway

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/reconciler/internal/clock"
	"github.com/viant/reconciler/model"
	"github.com/viant/reconciler/policy"
	"github.com/viant/reconciler/service/audit"
	"github.com/viant/reconciler/tracing"
)

// Call outcomes recorded in the audit payload.
const (
	OutcomeOK         = "ok"
	OutcomeNotAllowed = "not_allowed"
	OutcomeInvalid    = "invalid"
	OutcomeFailed     = "failed"
)

// Gateway validates, invokes and audits capability calls.
type Gateway struct {
	registry *Registry
	policy   *policy.Policy
	recorder audit.Recorder
	timeout  time.Duration
	logger   zerolog.Logger
}

// Option customises a Gateway.
type Option func(g *Gateway)

// WithPolicy narrows the registry with allow / block lists.
func WithPolicy(p *policy.Policy) Option {
	return func(g *Gateway) { g.policy = p }
}

// WithRecorder sets the audit recorder.
func WithRecorder(recorder audit.Recorder) Option {
	return func(g *Gateway) { g.recorder = recorder }
}

// WithTimeout bounds every capability call; zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) { g.timeout = timeout }
}

// WithLogger sets the gateway logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New creates a gateway over registry. A recorder is required: an unaudited
// call cannot happen.
func New(registry *Registry, options ...Option) (*Gateway, error) {
	if registry == nil {
		return nil, fmt.Errorf("capability registry was nil")
	}
	ret := &Gateway{registry: registry, logger: zerolog.Nop()}
	for _, option := range options {
		option(ret)
	}
	if ret.recorder == nil {
		return nil, fmt.Errorf("audit recorder was nil")
	}
	return ret, nil
}

// Registry returns the capability allowlist.
func (g *Gateway) Registry() *Registry { return g.registry }

// Invoke calls the named capability with positional args. Every call produces
// exactly one audit entry before it returns; when that entry cannot be
// recorded the call fails with ErrAuditFailed and no output.
func (g *Gateway) Invoke(ctx context.Context, name string, args ...interface{}) (output interface{}, err error) {
	ctx, span := tracing.StartSpan(ctx, "gateway."+name, tracing.KindClient)
	started := clock.Now()
	outcome := OutcomeOK
	defer func() {
		if auditErr := g.record(ctx, name, args, outcome, started, err); auditErr != nil {
			output = nil
			if err != nil {
				err = fmt.Errorf("%w: %v (call error: %v)", ErrAuditFailed, auditErr, err)
			} else {
				err = fmt.Errorf("%w: %v", ErrAuditFailed, auditErr)
			}
		}
		tracing.EndSpan(span, err)
	}()

	capability, ok := g.registry.Lookup(name)
	if !ok {
		outcome = OutcomeNotAllowed
		return nil, newError(KindToolNotAllowed, name, "capability is not allowlisted", nil)
	}
	if allowed, reason := g.policy.Evaluate(ctx, name, args); !allowed {
		outcome = OutcomeNotAllowed
		return nil, newError(KindToolNotAllowed, name, reason, nil)
	}
	if err = capability.Schema().Validate(args); err != nil {
		outcome = OutcomeInvalid
		return nil, newError(KindValidation, name, err.Error(), nil)
	}
	if output, err = g.call(ctx, capability, args); err != nil {
		outcome = OutcomeFailed
		return nil, newError(KindCapability, name, "invocation failed", err)
	}
	return output, nil
}

// Match invokes the matcher capability.
func (g *Gateway) Match(ctx context.Context, input *MatchInput) (*model.MatchResult, error) {
	output, err := g.Invoke(ctx, string(Matcher), input.Args()...)
	if err != nil {
		return nil, err
	}
	result, ok := output.(*model.MatchResult)
	if !ok {
		return nil, newError(KindCapability, string(Matcher), fmt.Sprintf("unexpected output %T", output), nil)
	}
	return result, nil
}

// DraftEmail invokes the email drafter capability.
func (g *Gateway) DraftEmail(ctx context.Context, input *DraftInput) (string, error) {
	output, err := g.Invoke(ctx, string(EmailDrafter), input.Args()...)
	if err != nil {
		return "", err
	}
	draft, ok := output.(string)
	if !ok {
		return "", newError(KindCapability, string(EmailDrafter), fmt.Sprintf("unexpected output %T", output), nil)
	}
	return draft, nil
}

func (g *Gateway) call(ctx context.Context, capability Capability, args []interface{}) (interface{}, error) {
	if g.timeout <= 0 {
		return safeInvoke(ctx, capability, args)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		output interface{}
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, err := safeInvoke(ctx, capability, args)
		done <- result{output: output, err: err}
	}()
	select {
	case r := <-done:
		return r.output, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("no result after %v: %w", g.timeout, ctx.Err())
	}
}

func safeInvoke(ctx context.Context, capability Capability, args []interface{}) (output interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capability panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return capability.invoke(ctx, args)
}

func (g *Gateway) record(ctx context.Context, name string, args []interface{}, outcome string, started time.Time, callErr error) error {
	scope := audit.ScopeFrom(ctx)
	invoiceID := scope.InvoiceID
	if capability, ok := g.registry.Lookup(name); ok && invoiceID == "" {
		if value, ok := capability.Schema().Lookup("invoice_id", args); ok {
			invoiceID = asString(value)
		}
	}
	payload := map[string]interface{}{
		"capability": name,
		"args":       append([]interface{}{}, args...),
		"outcome":    outcome,
		"elapsedMs":  clock.Since(started).Milliseconds(),
	}
	if callErr != nil {
		if kind, ok := KindOf(callErr); ok {
			payload["errorKind"] = string(kind)
		}
		payload["error"] = callErr.Error()
	}
	entry := &audit.Entry{
		Actor:     audit.ActorGateway,
		Action:    "invoke:" + name,
		InvoiceID: invoiceID,
		BatchID:   scope.BatchID,
		Payload:   payload,
	}
	if _, err := g.recorder.Record(ctx, entry); err != nil {
		g.logger.Error().Err(err).Str("capability", name).Str("invoice_id", invoiceID).Msg("failed to audit capability call")
		return err
	}
	event := g.logger.Debug()
	if callErr != nil {
		event = g.logger.Warn().Err(callErr)
	}
	event.Str("capability", name).Str("invoice_id", invoiceID).Str("outcome", outcome).Msg("capability call")
	return nil
}
