package reconciler

import (
	"github.com/rs/zerolog"
	"github.com/viant/reconciler/policy"
	"github.com/viant/reconciler/progress"
	"github.com/viant/reconciler/service/approval"
	"github.com/viant/reconciler/service/audit"
	"github.com/viant/reconciler/service/gateway"
	"github.com/viant/reconciler/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditStore overrides the store selected by configuration.
func WithAuditStore(store audit.Store) Option {
	return func(s *Service) { s.auditStore = store }
}

// WithMatcher overrides the configured matcher capability.
func WithMatcher(fn gateway.MatcherFunc) Option {
	return func(s *Service) { s.matcherFn = fn }
}

// WithDrafter overrides the template email drafter.
func WithDrafter(fn gateway.DrafterFunc) Option {
	return func(s *Service) { s.drafterFn = fn }
}

// WithPolicy overrides the configured capability policy, e.g. to attach an
// AskFunc.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithApprovalService sets the approval service.
func WithApprovalService(svc approval.Service) Option {
	return func(s *Service) { s.approvals = svc }
}

// WithProgress registers a callback receiving batch progress snapshots.
func WithProgress(fn func(progress.Snapshot)) Option {
	return func(s *Service) { s.onProgress = fn }
}

// WithTracing configures OpenTelemetry with the stdout exporter (or
// outputFile). The first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry with a custom exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}

// RunOption customises one batch run.
type RunOption func(r *runOptions)

type runOptions struct {
	batchID       string
	minConfidence *float64
}

// WithBatchID sets the batch id (generated when empty).
func WithBatchID(id string) RunOption {
	return func(r *runOptions) { r.batchID = id }
}

// WithMinConfidence overrides the configured confidence threshold.
func WithMinConfidence(value float64) RunOption {
	return func(r *runOptions) { r.minConfidence = &value }
}
