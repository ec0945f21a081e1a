package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/viant/reconciler"
	"github.com/viant/reconciler/service/audit"
	"github.com/viant/reconciler/service/dao"
)

var (
	auditLocation string
	auditInvoice  string
	auditBatch    string
	auditActor    string
	auditSince    time.Duration
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List entries of a durable audit ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := reconciler.LoadConfig(ctx, configURL)
			if err != nil {
				return err
			}
			if auditLocation != "" {
				cfg.Audit = reconciler.ParseAudit(auditLocation)
			}
			if cfg.Audit.Store == reconciler.AuditMemory {
				return fmt.Errorf("memory audit store does not outlive a run; pass --audit")
			}
			srv, err := reconciler.New(ctx, reconciler.WithConfig(cfg))
			if err != nil {
				return err
			}
			defer srv.Close()

			var parameters []*dao.Parameter
			if auditInvoice != "" {
				parameters = append(parameters, audit.WithInvoiceID(auditInvoice))
			}
			if auditBatch != "" {
				parameters = append(parameters, audit.WithBatchID(auditBatch))
			}
			if auditActor != "" {
				parameters = append(parameters, audit.WithActor(auditActor))
			}
			if auditSince > 0 {
				now := time.Now()
				parameters = append(parameters, audit.WithRange(now.Add(-auditSince), now)...)
			}
			entries, err := srv.Ledger().List(ctx, parameters...)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			for _, entry := range entries {
				if err = encoder.Encode(entry); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&auditLocation, "audit", "", "audit store: sqlite://<path> or a storage URL")
	cmd.Flags().StringVar(&auditInvoice, "invoice", "", "only entries of this invoice")
	cmd.Flags().StringVar(&auditBatch, "batch", "", "only entries of this batch")
	cmd.Flags().StringVar(&auditActor, "actor", "", "only entries of this actor")
	cmd.Flags().DurationVar(&auditSince, "since", 0, "only entries newer than this")
	return cmd
}
