package drafter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/reconciler/model"
	"github.com/viant/reconciler/service/gateway"
)

func TestDrafter_Draft(t *testing.T) {
	d, err := New(DefaultSignature())
	require.NoError(t, err)

	testCases := []struct {
		description string
		status      model.MatchStatus
		facts       map[string]interface{}
		contains    []string
		excludes    []string
	}{
		{
			description: "mismatch",
			status:      model.MatchStatusMismatch,
			facts:       map[string]interface{}{"amount_delta": 310.25, "has_grn": false, "days_delta": 40},
			contains: []string{
				"Subject: URGENT: Invoice Discrepancy - Invoice INV0002 / PO PO0002",
				"Dear Globex Supply,",
				"• Amount discrepancy of $310.25 detected",
				"• No goods receipt (GRN) found for the referenced PO",
				"• Timing discrepancy: Invoice received 40 days after goods receipt",
				"- Amount Delta: $310.25",
				"- GRN Available: No",
				"- PO Status: Found",
				"within 5 business days. Payment is currently on hold.",
				"Accounts Payable Department\nAcme Manufacturing\n",
			},
		},
		{
			description: "partial without findings",
			status:      model.MatchStatusPartial,
			facts:       map[string]interface{}{},
			contains: []string{
				"Subject: Review Required - Invoice INV0002 / PO PO0002",
				"• General compliance review as part of our standard process",
				"within 7 business days.",
				"- Vendor Match: Yes",
			},
			excludes: []string{"Payment is currently on hold"},
		},
		{
			description: "low confidence match",
			status:      model.MatchStatusMatch,
			facts:       map[string]interface{}{"po_missing": true, "vendor_match": false},
			contains: []string{
				"Subject: Clarification Requested",
				"• PO reference could not be located in our system",
				"• Vendor information does not match our PO records",
				"- PO Status: Missing",
				"This will not delay payment processing.",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			draft, err := d.Draft(context.Background(), &gateway.DraftInput{
				VendorName: "Globex Supply", InvoiceID: "INV0002", PONumber: "PO0002", Facts: tc.facts, Status: tc.status,
			})
			require.NoError(t, err)
			for _, fragment := range tc.contains {
				assert.Contains(t, draft, fragment)
			}
			for _, fragment := range tc.excludes {
				assert.NotContains(t, draft, fragment)
			}
		})
	}

	_, err = d.Draft(context.Background(), &gateway.DraftInput{InvoiceID: "INV1", Status: "unknown"})
	assert.Error(t, err)
}
