package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/reconciler/internal/clock"
)

// Delta is an incremental counter change. Fields are signed.
type Delta struct {
	Total   int
	Matched int
	Decided int
	Drafted int
	Failed  int
	Pending int
}

// Progress keeps aggregated task counters for one batch. It is safe for
// concurrent use.
type Progress struct {
	BatchID   string
	StartedAt time.Time

	TotalTasks   int
	MatchedTasks int
	DecidedTasks int
	DraftedTasks int
	FailedTasks  int
	PendingTasks int

	mux      sync.Mutex
	onChange func(Snapshot)
}

// Snapshot is a read-only copy of the counters.
type Snapshot struct {
	BatchID      string
	StartedAt    time.Time
	TotalTasks   int
	MatchedTasks int
	DecidedTasks int
	DraftedTasks int
	FailedTasks  int
	PendingTasks int
}

// New creates a tracker for batchID.
func New(batchID string, onChange func(Snapshot)) *Progress {
	return &Progress{BatchID: batchID, StartedAt: clock.Now(), onChange: onChange}
}

// Update applies d. The onChange callback runs outside the lock.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.TotalTasks += d.Total
	p.MatchedTasks += d.Matched
	p.DecidedTasks += d.Decided
	p.DraftedTasks += d.Drafted
	p.FailedTasks += d.Failed
	p.PendingTasks += d.Pending
	snapshot := p.snapshot()
	cb := p.onChange
	p.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.snapshot()
}

func (p *Progress) snapshot() Snapshot {
	return Snapshot{
		BatchID:      p.BatchID,
		StartedAt:    p.StartedAt,
		TotalTasks:   p.TotalTasks,
		MatchedTasks: p.MatchedTasks,
		DecidedTasks: p.DecidedTasks,
		DraftedTasks: p.DraftedTasks,
		FailedTasks:  p.FailedTasks,
		PendingTasks: p.PendingTasks,
	}
}

// OnChange replaces the update callback; nil disables it.
func (p *Progress) OnChange(cb func(Snapshot)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds p in a derived context.
func WithTracker(ctx context.Context, p *Progress) context.Context {
	return context.WithValue(ctx, trackerKey, p)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies d to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
