package audit

import (
	"context"
	"sort"
	"time"

	"github.com/viant/reconciler/service/dao"
	"github.com/viant/reconciler/service/dao/criteria"
)

// Store persists entries.
type Store interface {
	dao.Ledger[Entry]
}

// Sequencer is implemented by durable stores so a new Ledger resumes numbering
// after the last persisted entry.
type Sequencer interface {
	LastSeq(ctx context.Context) (uint64, error)
}

// WithInvoiceID restricts List to one invoice.
func WithInvoiceID(id string) *dao.Parameter {
	return &dao.Parameter{Name: ParamInvoiceID, Value: id}
}

// WithBatchID restricts List to one batch.
func WithBatchID(id string) *dao.Parameter {
	return &dao.Parameter{Name: ParamBatchID, Value: id}
}

// WithActor restricts List to one actor.
func WithActor(actor string) *dao.Parameter {
	return &dao.Parameter{Name: ParamActor, Value: actor}
}

// WithRange restricts List to entries with from <= Timestamp < to. A zero
// bound is open.
func WithRange(from, to time.Time) []*dao.Parameter {
	var ret []*dao.Parameter
	if !from.IsZero() {
		ret = append(ret, &dao.Parameter{Name: ParamFrom, Value: from})
	}
	if !to.IsZero() {
		ret = append(ret, &dao.Parameter{Name: ParamTo, Value: to})
	}
	return ret
}

// Match evaluates list parameters against an entry. Stores without a query
// language use it to filter.
func Match(entry *Entry, parameters []*dao.Parameter) bool {
	if !criteria.MatchString(ParamInvoiceID, entry.InvoiceID, parameters) {
		return false
	}
	if !criteria.MatchString(ParamBatchID, entry.BatchID, parameters) {
		return false
	}
	if !criteria.MatchString(ParamActor, entry.Actor, parameters) {
		return false
	}
	if from, ok := TimeParameter(ParamFrom, parameters); ok && entry.Timestamp.Before(from) {
		return false
	}
	if to, ok := TimeParameter(ParamTo, parameters); ok && !entry.Timestamp.Before(to) {
		return false
	}
	return true
}

// TimeParameter returns a time bound when present.
func TimeParameter(name string, parameters []*dao.Parameter) (time.Time, bool) {
	parameter := dao.Lookup(name, parameters)
	if parameter == nil {
		return time.Time{}, false
	}
	ts, ok := parameter.Value.(time.Time)
	return ts, ok
}

// SortBySeq orders entries by sequence number.
func SortBySeq(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
}
