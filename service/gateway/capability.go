package gateway

import (
	"context"
	"fmt"
	"reflect"

	"github.com/viant/reconciler/model"
	"github.com/viant/structology/conv"
)

// Name identifies a registered capability.
type Name string

const (
	Matcher      Name = "matcher"
	EmailDrafter Name = "email_drafter"
)

// MatchInput carries the matcher arguments.
type MatchInput struct {
	InvoiceID     string
	PONumber      string
	DataLocation  string
	ModelLocation string
}

// Args returns the positional form used by Invoke.
func (i *MatchInput) Args() []interface{} {
	return []interface{}{i.InvoiceID, i.PONumber, i.DataLocation, i.ModelLocation}
}

// DraftInput carries the email drafter arguments.
type DraftInput struct {
	VendorName string
	InvoiceID  string
	PONumber   string
	Facts      map[string]interface{}
	Status     model.MatchStatus
}

// Args returns the positional form used by Invoke.
func (i *DraftInput) Args() []interface{} {
	facts := i.Facts
	if facts == nil {
		facts = map[string]interface{}{}
	}
	return []interface{}{i.VendorName, i.InvoiceID, i.PONumber, facts, string(i.Status)}
}

// MatcherFunc scores one invoice/PO pair. The output is either a
// *model.MatchResult or a value convertible to one (e.g. a decoded JSON map).
type MatcherFunc func(ctx context.Context, input *MatchInput) (interface{}, error)

// DrafterFunc renders a dispute email draft.
type DrafterFunc func(ctx context.Context, input *DraftInput) (string, error)

// Capability is one of the closed set of capability kinds the gateway can
// dispatch to. Only this package provides implementations.
type Capability interface {
	Name() Name
	Schema() *Schema
	invoke(ctx context.Context, args []interface{}) (interface{}, error)
}

type matcher struct {
	fn        MatcherFunc
	converter *conv.Converter
}

// NewMatcher wraps fn as the "matcher" capability.
func NewMatcher(fn MatcherFunc) Capability {
	options := conv.DefaultOptions()
	options.IgnoreUnmapped = true
	return &matcher{fn: fn, converter: conv.NewConverter(options)}
}

var matcherSchema = &Schema{Params: []Param{
	{Name: "invoice_id", Type: TypeString, Rules: []Rule{NotEmpty()}},
	{Name: "po_number", Type: TypeString, Rules: []Rule{NotEmpty()}},
	{Name: "data_location", Type: TypeString, Rules: []Rule{NotEmpty()}},
	{Name: "model_location", Type: TypeString, Rules: []Rule{NotEmpty()}},
}}

var resultSchema = &Schema{Params: []Param{
	{Name: "status", Type: TypeString, Rules: []Rule{OneOf(statusNames()...)}},
	{Name: "confidence", Type: TypeFloat, Rules: []Rule{InRange(0, 1)}},
}}

func (m *matcher) Name() Name      { return Matcher }
func (m *matcher) Schema() *Schema { return matcherSchema }

func (m *matcher) invoke(ctx context.Context, args []interface{}) (interface{}, error) {
	input := &MatchInput{
		InvoiceID:     asString(args[0]),
		PONumber:      asString(args[1]),
		DataLocation:  asString(args[2]),
		ModelLocation: asString(args[3]),
	}
	output, err := m.fn(ctx, input)
	if err != nil {
		return nil, err
	}
	return m.toResult(output)
}

func (m *matcher) toResult(output interface{}) (*model.MatchResult, error) {
	var result *model.MatchResult
	switch actual := output.(type) {
	case *model.MatchResult:
		result = actual.Clone()
	case model.MatchResult:
		result = actual.Clone()
	default:
		if output == nil || (reflect.ValueOf(output).Kind() == reflect.Ptr && reflect.ValueOf(output).IsNil()) {
			return nil, fmt.Errorf("matcher returned no result")
		}
		result = &model.MatchResult{}
		if err := m.converter.Convert(output, result); err != nil {
			return nil, fmt.Errorf("failed to convert matcher output %T: %w", output, err)
		}
	}
	if result == nil {
		return nil, fmt.Errorf("matcher returned no result")
	}
	if err := resultSchema.Validate([]interface{}{string(result.Status), result.Confidence}); err != nil {
		return nil, fmt.Errorf("invalid matcher result: %w", err)
	}
	return result, nil
}

type drafter struct {
	fn DrafterFunc
}

// NewEmailDrafter wraps fn as the "email_drafter" capability.
func NewEmailDrafter(fn DrafterFunc) Capability {
	return &drafter{fn: fn}
}

var drafterSchema = &Schema{Params: []Param{
	{Name: "vendor_name", Type: TypeString},
	{Name: "invoice_id", Type: TypeString, Rules: []Rule{NotEmpty()}},
	{Name: "po_number", Type: TypeString, Rules: []Rule{NotEmpty()}},
	{Name: "facts", Type: TypeMap},
	{Name: "status", Type: TypeString, Rules: []Rule{OneOf(statusNames()...)}},
}}

func (d *drafter) Name() Name      { return EmailDrafter }
func (d *drafter) Schema() *Schema { return drafterSchema }

func (d *drafter) invoke(ctx context.Context, args []interface{}) (interface{}, error) {
	input := &DraftInput{
		VendorName: asString(args[0]),
		InvoiceID:  asString(args[1]),
		PONumber:   asString(args[2]),
		Facts:      args[3].(map[string]interface{}),
		Status:     model.MatchStatus(asString(args[4])),
	}
	return d.fn(ctx, input)
}

func statusNames() []string {
	ret := make([]string, 0, len(model.MatchStatuses))
	for _, status := range model.MatchStatuses {
		ret = append(ret, string(status))
	}
	return ret
}
