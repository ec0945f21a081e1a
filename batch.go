package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/reconciler/model"
	"gopkg.in/yaml.v3"
)

// batchDocument is the on disk batch layout; a bare list of invoices is also
// accepted.
type batchDocument struct {
	BatchID  string          `json:"batch_id" yaml:"batch_id"`
	Invoices []model.Invoice `json:"invoices" yaml:"invoices"`
}

// LoadInvoices reads a YAML or JSON batch file. It returns the batch id when
// the document names one.
func LoadInvoices(ctx context.Context, URL string) (string, []model.Invoice, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load invoices %v: %w", URL, err)
	}
	batchID, invoices, err := decodeInvoices(path.Ext(URL), data)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode invoices %v: %w", URL, err)
	}
	return batchID, invoices, nil
}

func decodeInvoices(ext string, data []byte) (string, []model.Invoice, error) {
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(ext, ".json") {
		unmarshal = json.Unmarshal
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "-") {
		var invoices []model.Invoice
		if err := unmarshal(data, &invoices); err != nil {
			return "", nil, err
		}
		return "", invoices, nil
	}
	doc := &batchDocument{}
	if err := unmarshal(data, doc); err != nil {
		return "", nil, err
	}
	return doc.BatchID, doc.Invoices, nil
}
