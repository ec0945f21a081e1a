package memory

import (
	"context"

	"github.com/viant/reconciler/service/audit"
	"github.com/viant/reconciler/service/dao"
	"github.com/viant/reconciler/service/dao/store"
)

// Store keeps audit entries in process memory.
type Store struct {
	ledger *store.MemoryLedger[audit.Entry]
}

// Append adds an entry.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	return s.ledger.Append(ctx, entry)
}

// List returns matching entries ordered by sequence number.
func (s *Store) List(ctx context.Context, parameters ...*dao.Parameter) ([]*audit.Entry, error) {
	entries, err := s.ledger.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	audit.SortBySeq(entries)
	return entries, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int { return s.ledger.Len() }

// New creates an empty store.
func New() *Store {
	return &Store{ledger: store.NewMemoryLedger[audit.Entry]((*audit.Entry).Clone, audit.Match)}
}

var _ audit.Store = (*Store)(nil)
