package workflow

import (
	"github.com/rs/zerolog"
	"github.com/viant/reconciler/progress"
	"github.com/viant/reconciler/service/approval"
	"github.com/viant/reconciler/service/decision"
)

// DefaultMinConfidence is used when a request does not set one.
const DefaultMinConfidence = 0.75

// DefaultWorkers bounds concurrent capability calls per stage.
const DefaultWorkers = 4

// Option customises a Runner.
type Option func(r *Runner)

// WithEngine replaces the default decision chain.
func WithEngine(engine *decision.Engine) Option {
	return func(r *Runner) { r.engine = engine }
}

// WithApprovals files an approval request for batches awaiting sign-off.
func WithApprovals(service approval.Service) Option {
	return func(r *Runner) { r.approvals = service }
}

// WithWorkers sets the per stage concurrency.
func WithWorkers(workers int) Option {
	return func(r *Runner) { r.workers = workers }
}

// WithMinConfidence sets the default confidence threshold.
func WithMinConfidence(minConfidence float64) Option {
	return func(r *Runner) { r.minConfidence = minConfidence }
}

// WithLogger sets the runner logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithProgress registers a callback invoked on every counter change.
func WithProgress(fn func(progress.Snapshot)) Option {
	return func(r *Runner) { r.onProgress = fn }
}
