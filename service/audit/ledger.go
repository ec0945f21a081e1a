package audit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/reconciler/internal/clock"
	"github.com/viant/reconciler/internal/idgen"
	"github.com/viant/reconciler/service/dao"
)

// Recorder is what components that emit entries depend on.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) (*Entry, error)
}

// Ledger stamps entries with a sequence number, id and timestamp before
// appending them to the store.
type Ledger struct {
	store  Store
	seq    atomic.Uint64
	logger zerolog.Logger
}

// Option customises a Ledger.
type Option func(l *Ledger)

// WithLogger sets the ledger logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger creates a ledger on top of store. When the store implements
// Sequencer numbering resumes after its last entry.
func NewLedger(ctx context.Context, store Store, options ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store was nil")
	}
	ret := &Ledger{store: store, logger: zerolog.Nop()}
	for _, option := range options {
		option(ret)
	}
	if sequencer, ok := store.(Sequencer); ok {
		last, err := sequencer.LastSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resume audit sequence: %w", err)
		}
		ret.seq.Store(last)
	}
	return ret, nil
}

// Record appends entry and returns the stamped copy.
func (l *Ledger) Record(ctx context.Context, entry *Entry) (*Entry, error) {
	if entry == nil {
		return nil, dao.ErrNilEntity
	}
	stamped := entry.Clone()
	stamped.Seq = l.seq.Add(1)
	if stamped.ID == "" {
		stamped.ID = idgen.New()
	}
	if stamped.Timestamp.IsZero() {
		stamped.Timestamp = clock.Now()
	}
	if err := l.store.Append(ctx, stamped); err != nil {
		l.logger.Error().Err(err).
			Uint64("seq", stamped.Seq).
			Str("actor", stamped.Actor).
			Str("action", stamped.Action).
			Msg("audit append failed")
		return nil, fmt.Errorf("failed to append audit entry %v: %w", stamped.Seq, err)
	}
	l.logger.Debug().
		Uint64("seq", stamped.Seq).
		Str("actor", stamped.Actor).
		Str("action", stamped.Action).
		Str("invoice_id", stamped.InvoiceID).
		Msg("audit entry recorded")
	return stamped, nil
}

// List returns entries ordered by sequence number.
func (l *Ledger) List(ctx context.Context, parameters ...*dao.Parameter) ([]*Entry, error) {
	entries, err := l.store.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	SortBySeq(entries)
	return entries, nil
}

// ByInvoice returns the trail of one invoice.
func (l *Ledger) ByInvoice(ctx context.Context, invoiceID string) ([]*Entry, error) {
	return l.List(ctx, WithInvoiceID(invoiceID))
}

// Between returns entries with from <= Timestamp < to.
func (l *Ledger) Between(ctx context.Context, from, to time.Time) ([]*Entry, error) {
	return l.List(ctx, WithRange(from, to)...)
}

var _ Recorder = (*Ledger)(nil)
