package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind string

const (
	KindToolNotAllowed Kind = "ToolNotAllowed"
	KindValidation     Kind = "ValidationError"
	KindCapability     Kind = "CapabilityError"
)

// ErrAuditFailed is returned when the audit entry of a call cannot be
// recorded; the call outcome is discarded.
var ErrAuditFailed = errors.New("failed to audit capability call")

// Error is returned by every failed gateway call.
type Error struct {
	Kind       Kind
	Capability string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Kind, e.Capability, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, capability, message string, err error) *Error {
	return &Error{Kind: kind, Capability: capability, Message: message, Err: err}
}

// KindOf returns the kind of a gateway error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind, true
	}
	return "", false
}

// IsToolNotAllowed reports a call to a capability outside the allowlist.
func IsToolNotAllowed(err error) bool { return hasKind(err, KindToolNotAllowed) }

// IsValidation reports arguments rejected by the capability schema.
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// IsCapability reports a fault raised by the capability itself.
func IsCapability(err error) bool { return hasKind(err, KindCapability) }

func hasKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
