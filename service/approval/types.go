package approval

import (
	"time"

	"github.com/viant/reconciler/model"
)

// Request asks a human to ratify the proposed actions of one batch.
type Request struct {
	ID        string                 `json:"id"`
	BatchID   string                 `json:"batchId"`
	Summary   model.Summary          `json:"summary"`
	Reasons   map[string]string      `json:"reasons,omitempty"` // invoice_id -> email reason
	CreatedAt time.Time              `json:"createdAt"`
	ExpiresAt *time.Time             `json:"expiresAt,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// Decision is the recorded human verdict.
type Decision struct {
	ID        string    `json:"id"` // same as request.ID
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}
