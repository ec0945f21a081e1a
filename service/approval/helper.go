package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/reconciler/internal/clock"
)

// DecisionFunc decides what to do with a pending request.
// Return (true,  "") to approve
//
//	(false, "…") to reject with reason.
type DecisionFunc func(r *Request) (approved bool, reason string)

// AutoDecider starts a goroutine that polls ListPending and applies fn to
// every request accepted by filters. It returns stop(); call it (or cancel
// ctx) to exit.
func AutoDecider(ctx context.Context,
	svc Service,
	fn DecisionFunc,
	interval time.Duration,
	filters ...PendingFilter) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				reqs, _ := ListPending(ctx, svc, filters...)
				for _, r := range reqs {
					ok, reason := fn(r)
					_, _ = svc.Decide(ctx, r.ID, ok, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoExpire rejects pending requests whose ExpiresAt has passed.
func AutoExpire(ctx context.Context, svc Service, reason string, interval time.Duration) func() {
	return AutoDecider(ctx, svc, func(r *Request) (bool, string) {
		return false, reason
	}, interval, expired)
}

func expired(r *Request) bool {
	return r.ExpiresAt != nil && !clock.Now().Before(*r.ExpiresAt)
}

// WaitForDecision polls svc until the request is decided or timeout elapses.
func WaitForDecision(ctx context.Context, svc Service, id string, timeout time.Duration) (*Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		decision, err := svc.Decision(ctx, id)
		if err != nil {
			return nil, err
		}
		if decision != nil {
			return decision, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no decision for %v: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// PendingFilter narrows ListPending.
type PendingFilter func(r *Request) bool

// WithBatchID keeps requests of one batch.
func WithBatchID(batchID string) PendingFilter {
	return func(r *Request) bool { return r.BatchID == batchID }
}

// WithMismatches keeps requests whose batch holds at least one mismatch.
func WithMismatches() PendingFilter {
	return func(r *Request) bool { return r.Summary.Mismatches > 0 }
}

// ListPending returns pending requests accepted by every filter.
func ListPending(ctx context.Context, svc Service, filters ...PendingFilter) ([]*Request, error) {
	pending, err := svc.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]*Request, 0, len(pending))
	for _, r := range pending {
		if accept(r, filters) {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

func accept(r *Request, filters []PendingFilter) bool {
	for _, filter := range filters {
		if !filter(r) {
			return false
		}
	}
	return true
}
