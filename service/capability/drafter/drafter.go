// Package drafter renders dispute email drafts. Drafts are proposals for a
// human reviewer; nothing here sends mail.
package drafter

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/viant/reconciler/model"
	"github.com/viant/reconciler/service/gateway"
)

// Signature identifies the accounts payable team signing the drafts.
type Signature struct {
	Company    string `json:"company,omitempty" yaml:"company,omitempty" env:"COMPANY"`
	Department string `json:"department,omitempty" yaml:"department,omitempty" env:"DEPARTMENT"`
	Email      string `json:"email,omitempty" yaml:"email,omitempty" env:"EMAIL"`
	Phone      string `json:"phone,omitempty" yaml:"phone,omitempty" env:"PHONE"`
}

// DefaultSignature returns the stock signature.
func DefaultSignature() Signature {
	return Signature{
		Company:    "Acme Manufacturing",
		Department: "Accounts Payable Department",
		Email:      "ap@acme-manufacturing.com",
		Phone:      "(555) 123-4567",
	}
}

type tone struct {
	SubjectPrefix string
	Urgency       string
	Action        string
}

var tones = map[model.MatchStatus]tone{
	model.MatchStatusMismatch: {
		SubjectPrefix: "URGENT: Invoice Discrepancy",
		Urgency:       "We have identified significant discrepancies that require immediate attention:",
		Action:        "Please provide corrected documentation or explanation within 5 business days. Payment is currently on hold.",
	},
	model.MatchStatusPartial: {
		SubjectPrefix: "Review Required",
		Urgency:       "We are reviewing your invoice and need clarification on the following items:",
		Action:        "Please review and provide supporting documentation or confirmation within 7 business days.",
	},
	model.MatchStatusMatch: {
		SubjectPrefix: "Clarification Requested",
		Urgency:       "We are processing your invoice and would appreciate clarification on minor items:",
		Action:        "Please provide any additional documentation at your convenience. This will not delay payment processing.",
	},
}

const generalReview = "General compliance review as part of our standard process"

const emailTemplate = `Subject: {{.Tone.SubjectPrefix}} - Invoice {{.InvoiceID}} / PO {{.PONumber}}

Dear {{.VendorName}},

{{.Tone.Urgency}}

{{range .Issues}}• {{.}}
{{end}}
Invoice Details:
- Invoice ID: {{.InvoiceID}}
- PO Number: {{.PONumber}}
- Amount Delta: ${{printf "%.2f" .AmountDelta}}
- Vendor Match: {{yesNo .VendorMatch}}
- GRN Available: {{yesNo .HasGRN}}
- PO Status: {{if .POMissing}}Missing{{else}}Found{{end}}

{{.Tone.Action}}

If you have any questions, please contact our Accounts Payable team at {{.Signature.Email}} or call {{.Signature.Phone}}.

Best regards,
{{.Signature.Department}}
{{.Signature.Company}}
`

type view struct {
	VendorName  string
	InvoiceID   string
	PONumber    string
	Tone        tone
	Issues      []string
	AmountDelta float64
	VendorMatch bool
	HasGRN      bool
	POMissing   bool
	Signature   Signature
}

// Drafter renders drafts from a parsed template.
type Drafter struct {
	signature Signature
	template  *template.Template
}

// New creates a drafter signing with signature.
func New(signature Signature) (*Drafter, error) {
	tmpl, err := template.New("dispute").Funcs(template.FuncMap{
		"yesNo": func(v bool) string {
			if v {
				return "Yes"
			}
			return "No"
		},
	}).Parse(emailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}
	return &Drafter{signature: signature, template: tmpl}, nil
}

// Draft implements gateway.DrafterFunc.
func (d *Drafter) Draft(ctx context.Context, input *gateway.DraftInput) (string, error) {
	aTone, ok := tones[input.Status]
	if !ok {
		return "", fmt.Errorf("unsupported status %q", input.Status)
	}
	facts := input.Facts
	issues := Issues(facts)
	if len(issues) == 0 {
		issues = []string{generalReview}
	}
	data := &view{
		VendorName:  input.VendorName,
		InvoiceID:   input.InvoiceID,
		PONumber:    input.PONumber,
		Tone:        aTone,
		Issues:      issues,
		AmountDelta: model.AmountDelta(facts),
		VendorMatch: model.FactBool(facts, model.FactVendorMatch, true),
		HasGRN:      model.FactBool(facts, model.FactHasGRN, true),
		POMissing:   model.FactBool(facts, model.FactPOMissing, false),
		Signature:   d.signature,
	}
	buf := new(bytes.Buffer)
	if err := d.template.Execute(buf, data); err != nil {
		return "", fmt.Errorf("failed to render draft for %v: %w", input.InvoiceID, err)
	}
	return buf.String(), nil
}

// Issues lists the findings a vendor is asked to address.
func Issues(facts map[string]interface{}) []string {
	var issues []string
	if model.FactBool(facts, model.FactPOMissing, false) {
		issues = append(issues, "PO reference could not be located in our system")
	}
	if !model.FactBool(facts, model.FactVendorMatch, true) {
		issues = append(issues, "Vendor information does not match our PO records")
	}
	if delta := model.AmountDelta(facts); delta > model.AmountTolerance {
		issues = append(issues, fmt.Sprintf("Amount discrepancy of $%.2f detected", delta))
	}
	if !model.FactBool(facts, model.FactHasGRN, true) {
		issues = append(issues, "No goods receipt (GRN) found for the referenced PO")
	}
	if days := model.DaysDelta(facts); days > model.TimingConcernDays {
		issues = append(issues, fmt.Sprintf("Timing discrepancy: Invoice received %v days after goods receipt", days))
	}
	return issues
}
