package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/reconciler/model"
)

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "features.yaml"), []byte(`
- invoice_id: INV0001
  po_number: PO0001
  facts: {amount_delta: 0.0, vendor_match: true, has_grn: true, days_delta: 1}
`), 0o644))
	modelPath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(modelPath, []byte("intercept: -3\nweights:\n  amount_delta: 0.05\n"), 0o644))
	invoicesPath := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(invoicesPath, []byte("batch_id: B-42\ninvoices:\n  - invoice_id: INV0001\n    po_number: PO0001\n    vendor_name: Globex\n"), 0o644))
	auditPath := filepath.Join(dir, "audit.db")

	stdout := &bytes.Buffer{}
	cmd := rootCmd()
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--data", dataDir, "--model", modelPath, "--invoices", invoicesPath, "--audit", "sqlite://" + auditPath})
	require.NoError(t, cmd.Execute())

	wfCtx := &model.WorkflowContext{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), wfCtx))
	assert.Equal(t, "B-42", wfCtx.BatchID)
	assert.Equal(t, model.StatusCompleted, wfCtx.Status)
	assert.Equal(t, 1, wfCtx.Summary.CleanMatches)

	stdout.Reset()
	cmd = rootCmd()
	cmd.SetOut(stdout)
	cmd.SetArgs([]string{"audit", "--audit", "sqlite://" + auditPath, "--invoice", "INV0001"})
	require.NoError(t, cmd.Execute())
	lines := bytes.Split(bytes.TrimSpace(stdout.Bytes()), []byte("\n"))
	assert.Len(t, lines, 2)
}
