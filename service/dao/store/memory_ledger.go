package store

import (
	"context"
	"sync"

	"github.com/viant/reconciler/service/dao"
)

// MemoryLedger is an append-only, insertion ordered in-memory dao.Ledger.
// Records are copied on the way in and out with clone, so callers can not
// edit what was appended.
type MemoryLedger[T any] struct {
	mu      sync.RWMutex
	records []*T
	clone   func(*T) *T
	filter  func(*T, []*dao.Parameter) bool
}

// NewMemoryLedger creates a ledger. filter may be nil to disable parameter
// filtering.
func NewMemoryLedger[T any](clone func(*T) *T, filter func(*T, []*dao.Parameter) bool) *MemoryLedger[T] {
	return &MemoryLedger[T]{clone: clone, filter: filter}
}

// Append adds a record at the end of the ledger.
func (l *MemoryLedger[T]) Append(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	v = l.clone(v)
	l.mu.Lock()
	l.records = append(l.records, v)
	l.mu.Unlock()
	return nil
}

// List returns the matching records in insertion order.
func (l *MemoryLedger[T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*T, 0, len(l.records))
	for _, v := range l.records {
		if l.filter != nil && !l.filter(v, parameters) {
			continue
		}
		out = append(out, l.clone(v))
	}
	return out, nil
}

// Len returns the number of appended records.
func (l *MemoryLedger[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

var _ dao.Ledger[struct{}] = (*MemoryLedger[struct{}])(nil)
