package reconciler

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/viant/reconciler/model"
	"github.com/viant/reconciler/policy"
	"github.com/viant/reconciler/progress"
	"github.com/viant/reconciler/service/approval"
	amemory "github.com/viant/reconciler/service/approval/memory"
	"github.com/viant/reconciler/service/audit"
	auditfs "github.com/viant/reconciler/service/audit/fs"
	auditmem "github.com/viant/reconciler/service/audit/memory"
	"github.com/viant/reconciler/service/audit/sqlite"
	"github.com/viant/reconciler/service/capability/drafter"
	"github.com/viant/reconciler/service/capability/matcher"
	"github.com/viant/reconciler/service/decision"
	"github.com/viant/reconciler/service/gateway"
	"github.com/viant/reconciler/service/workflow"
)

// Service wires the audit ledger, guardrail gateway, decision engine and
// workflow runner.
type Service struct {
	config     *Config
	logger     zerolog.Logger
	auditStore audit.Store
	ledger     *audit.Ledger
	matcherFn  gateway.MatcherFunc
	drafterFn  gateway.DrafterFunc
	policy     *policy.Policy
	approvals  approval.Service
	gateway    *gateway.Gateway
	engine     *decision.Engine
	runner     *workflow.Runner
	closers    []io.Closer
	onProgress func(progress.Snapshot)
}

// New creates a service from configuration and options.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{logger: zerolog.Nop()}
	for _, option := range options {
		option(ret)
	}
	if ret.config == nil {
		ret.config = DefaultConfig()
	}
	if err := ret.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := ret.init(ctx); err != nil {
		_ = ret.Close()
		return nil, err
	}
	return ret, nil
}

func (s *Service) init(ctx context.Context) (err error) {
	if s.auditStore == nil {
		if s.auditStore, err = s.openAuditStore(ctx); err != nil {
			return err
		}
	}
	if s.ledger, err = audit.NewLedger(ctx, s.auditStore, audit.WithLogger(s.logger)); err != nil {
		return err
	}
	if s.matcherFn == nil {
		if s.matcherFn, err = s.newMatcher(); err != nil {
			return err
		}
	}
	if s.drafterFn == nil {
		emailDrafter, err := drafter.New(s.config.Signature)
		if err != nil {
			return err
		}
		s.drafterFn = emailDrafter.Draft
	}
	registry, err := gateway.NewRegistry(gateway.NewMatcher(s.matcherFn), gateway.NewEmailDrafter(s.drafterFn))
	if err != nil {
		return err
	}
	if s.policy == nil {
		s.policy = policy.FromConfig(&s.config.Gateway.Policy)
	}
	if s.gateway, err = gateway.New(registry,
		gateway.WithRecorder(s.ledger),
		gateway.WithPolicy(s.policy),
		gateway.WithTimeout(s.config.Gateway.Timeout),
		gateway.WithLogger(s.logger)); err != nil {
		return err
	}
	if s.engine, err = s.newEngine(); err != nil {
		return err
	}
	if s.approvals == nil {
		s.approvals = amemory.New(amemory.WithRecorder(s.ledger), amemory.WithLogger(s.logger))
	}
	runnerOptions := []workflow.Option{
		workflow.WithEngine(s.engine),
		workflow.WithApprovals(s.approvals),
		workflow.WithWorkers(s.config.Workers),
		workflow.WithMinConfidence(s.config.MinConfidence),
		workflow.WithLogger(s.logger),
	}
	if s.onProgress != nil {
		runnerOptions = append(runnerOptions, workflow.WithProgress(s.onProgress))
	}
	s.runner, err = workflow.New(s.gateway, s.ledger, runnerOptions...)
	return err
}

func (s *Service) openAuditStore(ctx context.Context) (audit.Store, error) {
	cfg := s.config.Audit
	switch cfg.Store {
	case AuditFs:
		return auditfs.New(ctx, cfg.URL, auditfs.WithLogger(s.logger))
	case AuditSqlite:
		store, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store)
		return store, nil
	}
	return auditmem.New(), nil
}

func (s *Service) newMatcher() (gateway.MatcherFunc, error) {
	if s.config.Matcher.Kind == MatcherScript {
		scriptMatcher, err := matcher.NewScriptMatcher(s.config.Matcher.Script, s.logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, scriptMatcher)
		return scriptMatcher.Match, nil
	}
	return matcher.NewFactsMatcher(matcher.WithLogger(s.logger)).Match, nil
}

func (s *Service) newEngine() (*decision.Engine, error) {
	var options []decision.Option
	if av := s.config.Decision.AmountVariance; av.Enabled {
		options = append(options, decision.WithRule(decision.AmountVarianceRule(av.Threshold, av.Priority)))
	}
	return decision.New(options...)
}

// Run reconciles one batch. dataLocation and modelLocation are handed to the
// matcher unchanged.
func (s *Service) Run(ctx context.Context, dataLocation, modelLocation string, invoices []model.Invoice, options ...RunOption) (*model.WorkflowContext, error) {
	opts := &runOptions{}
	for _, option := range options {
		option(opts)
	}
	return s.runner.Run(ctx, &workflow.Request{
		BatchID:       opts.batchID,
		DataLocation:  dataLocation,
		ModelLocation: modelLocation,
		Invoices:      invoices,
		MinConfidence: opts.minConfidence,
	})
}

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.config }

// Ledger returns the audit ledger.
func (s *Service) Ledger() *audit.Ledger { return s.ledger }

// Approvals returns the approval service fed by the approval gate.
func (s *Service) Approvals() approval.Service { return s.approvals }

// Gateway returns the guardrail gateway.
func (s *Service) Gateway() *gateway.Gateway { return s.gateway }

// Engine returns the decision engine.
func (s *Service) Engine() *decision.Engine { return s.engine }

// Close releases the script session and the sqlite handle.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
