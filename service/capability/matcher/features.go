package matcher

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// FeatureFiles are looked up, in order, under the data location.
var FeatureFiles = []string{"features.yaml", "features.yml", "features.json"}

// Row holds the engineered features of one invoice/PO pair.
type Row struct {
	InvoiceID string                 `yaml:"invoice_id" json:"invoice_id"`
	PONumber  string                 `yaml:"po_number" json:"po_number"`
	Facts     map[string]interface{} `yaml:"facts" json:"facts"`
}

type rowKey struct {
	invoiceID string
	poNumber  string
}

// Rows indexes feature rows by invoice/PO pair.
type Rows map[rowKey]*Row

// Lookup returns the row of a pair.
func (r Rows) Lookup(invoiceID, poNumber string) (*Row, bool) {
	row, ok := r[rowKey{invoiceID: invoiceID, poNumber: poNumber}]
	return row, ok
}

// LoadRows reads the first feature file found under dataURL.
func LoadRows(ctx context.Context, fs afs.Service, dataURL string) (Rows, error) {
	for _, name := range FeatureFiles {
		URL := url.Join(dataURL, name)
		exists, err := fs.Exists(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to check %v: %w", URL, err)
		}
		if !exists {
			continue
		}
		data, err := fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to load features %v: %w", URL, err)
		}
		var rows []*Row
		if err = yaml.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode features %v: %w", URL, err)
		}
		ret := make(Rows, len(rows))
		for _, row := range rows {
			if row.Facts == nil {
				row.Facts = map[string]interface{}{}
			}
			ret[rowKey{invoiceID: row.InvoiceID, poNumber: row.PONumber}] = row
		}
		return ret, nil
	}
	return nil, fmt.Errorf("no feature file under %v", dataURL)
}
