package matcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/reconciler/service/gateway"
)

// FactsMatcher scores pairs from feature rows and a logistic model. Loaded
// documents are cached per location.
type FactsMatcher struct {
	fs     afs.Service
	logger zerolog.Logger
	mux    sync.Mutex
	rows   map[string]Rows
	models map[string]*Model
}

// Option customises a FactsMatcher.
type Option func(m *FactsMatcher)

// WithFs replaces the default afs service.
func WithFs(fs afs.Service) Option {
	return func(m *FactsMatcher) { m.fs = fs }
}

// WithLogger sets the matcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *FactsMatcher) { m.logger = logger }
}

// NewFactsMatcher creates a matcher.
func NewFactsMatcher(options ...Option) *FactsMatcher {
	ret := &FactsMatcher{
		fs:     afs.New(),
		logger: zerolog.Nop(),
		rows:   map[string]Rows{},
		models: map[string]*Model{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Match implements gateway.MatcherFunc.
func (m *FactsMatcher) Match(ctx context.Context, input *gateway.MatchInput) (interface{}, error) {
	aModel, err := m.model(ctx, input.ModelLocation)
	if err != nil {
		return nil, err
	}
	rows, err := m.features(ctx, input.DataLocation)
	if err != nil {
		return nil, err
	}
	row, ok := rows.Lookup(input.InvoiceID, input.PONumber)
	if !ok {
		m.logger.Debug().Str("invoice_id", input.InvoiceID).Str("po_number", input.PONumber).Msg("no feature row")
		return NotFound(), nil
	}
	probability := aModel.Probability(row.Facts)
	facts := make(map[string]interface{}, len(row.Facts))
	for k, v := range row.Facts {
		facts[k] = v
	}
	result, err := Classify(probability, facts)
	if err != nil {
		return nil, fmt.Errorf("failed to score %v/%v: %w", input.InvoiceID, input.PONumber, err)
	}
	m.logger.Debug().
		Str("invoice_id", input.InvoiceID).
		Float64("mismatch_probability", probability).
		Str("status", string(result.Status)).
		Msg("pair scored")
	return result, nil
}

func (m *FactsMatcher) model(ctx context.Context, URL string) (*Model, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if ret, ok := m.models[URL]; ok {
		return ret, nil
	}
	ret, err := LoadModel(ctx, m.fs, URL)
	if err != nil {
		return nil, err
	}
	m.models[URL] = ret
	return ret, nil
}

func (m *FactsMatcher) features(ctx context.Context, URL string) (Rows, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if ret, ok := m.rows[URL]; ok {
		return ret, nil
	}
	ret, err := LoadRows(ctx, m.fs, URL)
	if err != nil {
		return nil, err
	}
	m.rows[URL] = ret
	return ret, nil
}
