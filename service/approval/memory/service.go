package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/viant/reconciler/internal/clock"
	"github.com/viant/reconciler/service/approval"
	"github.com/viant/reconciler/service/audit"
	"github.com/viant/reconciler/service/dao"
	"github.com/viant/reconciler/service/dao/store"
)

type service struct {
	reqDAO dao.Service[string, approval.Request]
	decDAO dao.Service[string, approval.Decision]

	recorder audit.Recorder
	logger   zerolog.Logger
}

// Option customises the service.
type Option func(*service)

// WithRecorder records requests and decisions in the audit ledger.
func WithRecorder(recorder audit.Recorder) Option {
	return func(s *service) { s.recorder = recorder }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

func reqKey(r *approval.Request) string  { return r.ID }
func decKey(d *approval.Decision) string { return d.ID }

// New creates an in-memory approval service.
func New(options ...Option) approval.Service {
	ret := &service{
		reqDAO: store.NewMemoryStore[string, approval.Request](reqKey),
		decDAO: store.NewMemoryStore[string, approval.Decision](decKey),
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) RequestApproval(ctx context.Context, r *approval.Request) error {
	if r == nil {
		return errors.New("invalid request")
	}
	if r.ID == "" {
		r.ID = r.BatchID
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = clock.Now()
	}
	if d, _ := s.decDAO.Load(ctx, r.ID); d != nil {
		return fmt.Errorf("%w: %v", approval.ErrAlreadyDecided, r.ID)
	}
	// re-submission of a pending request overwrites it
	if err := s.reqDAO.Save(ctx, r); err != nil {
		return err
	}
	s.audit(ctx, r.BatchID, "request", map[string]interface{}{
		"requestId":      r.ID,
		"emailsToSend":   r.Summary.EmailsToSend,
		"mismatches":     r.Summary.Mismatches,
		"totalInvoices":  r.Summary.TotalInvoices,
		"approvalNeeded": r.Summary.ApprovalRequired,
	})
	s.logger.Info().Str("request_id", r.ID).Int("emails_to_send", r.Summary.EmailsToSend).Msg("approval requested")
	return nil
}

func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	all, err := s.reqDAO.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(all))
	for _, r := range all {
		if d, _ := s.decDAO.Load(ctx, r.ID); d == nil {
			pending = append(pending, r)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

func (s *service) Decide(ctx context.Context, id string, ok bool, reason string) (*approval.Decision, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	request, _ := s.reqDAO.Load(ctx, id)
	if request == nil {
		return nil, fmt.Errorf("%w: %v", approval.ErrNotFound, id)
	}
	if d, _ := s.decDAO.Load(ctx, id); d != nil {
		return nil, fmt.Errorf("%w: %v", approval.ErrAlreadyDecided, id)
	}
	d := &approval.Decision{
		ID:        id,
		Approved:  ok,
		Reason:    reason,
		DecidedAt: clock.Now(),
	}
	if err := s.decDAO.Save(ctx, d); err != nil {
		return nil, err
	}
	s.audit(ctx, request.BatchID, "decide", map[string]interface{}{
		"requestId": id,
		"approved":  ok,
		"reason":    reason,
	})
	s.logger.Info().Str("request_id", id).Bool("approved", ok).Str("reason", reason).Msg("approval decided")
	return d, nil
}

func (s *service) Decision(ctx context.Context, id string) (*approval.Decision, error) {
	return s.decDAO.Load(ctx, id)
}

func (s *service) audit(ctx context.Context, batchID, action string, payload map[string]interface{}) {
	if s.recorder == nil {
		return
	}
	entry := &audit.Entry{Actor: audit.ActorApproval, Action: action, BatchID: batchID, Payload: payload}
	if _, err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to audit approval")
	}
}

var _ approval.Service = (*service)(nil)
