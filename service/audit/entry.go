package audit

import "time"

// Actors recording entries.
const (
	ActorGateway  = "gateway"
	ActorDecision = "decision"
	ActorWorkflow = "workflow"
	ActorApproval = "approval"
)

// Parameter names understood by every Store.
const (
	ParamInvoiceID = "InvoiceID"
	ParamBatchID   = "BatchID"
	ParamActor     = "Actor"
	ParamFrom      = "From"
	ParamTo        = "To"
)

// Entry is one immutable ledger record.
type Entry struct {
	Seq       uint64                 `json:"seq"`
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	InvoiceID string                 `json:"invoiceId,omitempty"`
	BatchID   string                 `json:"batchId,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Clone copies the entry and its top level payload.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	ret := *e
	if e.Payload != nil {
		ret.Payload = make(map[string]interface{}, len(e.Payload))
		for k, v := range e.Payload {
			ret.Payload[k] = v
		}
	}
	return &ret
}
