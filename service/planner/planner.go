// Package planner expands a raw invoice batch into independent tasks.
package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/viant/reconciler/model"
)

// ErrMalformedBatch is returned when the batch cannot be planned.
var ErrMalformedBatch = errors.New("malformed invoice batch")

// Plan creates one planned task per invoice, in input order. Nothing is
// created when any row is malformed.
func Plan(invoices []model.Invoice) ([]*model.Task, error) {
	seen := make(map[string]int, len(invoices))
	for i, invoice := range invoices {
		if strings.TrimSpace(invoice.InvoiceID) == "" {
			return nil, fmt.Errorf("%w: row %d: empty invoice_id", ErrMalformedBatch, i)
		}
		if strings.TrimSpace(invoice.PONumber) == "" {
			return nil, fmt.Errorf("%w: row %d: invoice %v: empty po_number", ErrMalformedBatch, i, invoice.InvoiceID)
		}
		if prev, ok := seen[invoice.InvoiceID]; ok {
			return nil, fmt.Errorf("%w: row %d: invoice %v duplicates row %d", ErrMalformedBatch, i, invoice.InvoiceID, prev)
		}
		seen[invoice.InvoiceID] = i
	}
	tasks := make([]*model.Task, 0, len(invoices))
	for _, invoice := range invoices {
		tasks = append(tasks, model.NewTask(invoice))
	}
	return tasks, nil
}
