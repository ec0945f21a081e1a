package audit

import "context"

type scopeKeyT struct{}

var scopeKey scopeKeyT

// Scope correlates entries recorded deeper in the call chain with a batch and
// an invoice.
type Scope struct {
	BatchID   string
	InvoiceID string
}

// WithScope returns a context carrying scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// ScopeFrom returns the scope carried by ctx (zero when absent).
func ScopeFrom(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	scope, _ := ctx.Value(scopeKey).(Scope)
	return scope
}
