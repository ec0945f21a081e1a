package matcher

import (
	"context"
	"fmt"
	"math"

	"github.com/viant/afs"
	"github.com/viant/reconciler/model"
	"gopkg.in/yaml.v3"
)

// Model is a logistic regression over named features.
type Model struct {
	Intercept float64            `yaml:"intercept" json:"intercept"`
	Weights   map[string]float64 `yaml:"weights" json:"weights"`
}

// Probability returns the mismatch probability for features; a missing
// feature counts as zero.
func (m *Model) Probability(features map[string]interface{}) float64 {
	z := m.Intercept
	for name, weight := range m.Weights {
		if value, ok := model.FactFloat(features, name); ok {
			z += weight * value
		}
	}
	return 1 / (1 + math.Exp(-z))
}

// LoadModel reads a YAML (or JSON) model document.
func LoadModel(ctx context.Context, fs afs.Service, URL string) (*Model, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %v: %w", URL, err)
	}
	ret := &Model{}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode model %v: %w", URL, err)
	}
	if len(ret.Weights) == 0 {
		return nil, fmt.Errorf("model %v has no weights", URL)
	}
	return ret, nil
}
