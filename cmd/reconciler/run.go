package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/viant/reconciler"
	"github.com/viant/reconciler/internal/logger"
	"github.com/viant/reconciler/progress"
)

var (
	runData          string
	runModel         string
	runInvoices      string
	runBatchID       string
	runMinConfidence float64
	runAudit         string
	runOutput        string
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one invoice batch up to the approval gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return runBatch(ctx, cmd)
		},
	}
	cmd.Flags().StringVar(&runData, "data", "", "feature data location")
	cmd.Flags().StringVar(&runModel, "model", "", "scoring model location")
	cmd.Flags().StringVar(&runInvoices, "invoices", "", "batch YAML or JSON URL")
	cmd.Flags().StringVar(&runBatchID, "batch-id", "", "batch id (generated when empty)")
	cmd.Flags().Float64Var(&runMinConfidence, "min-confidence", 0, "override the configured confidence threshold")
	cmd.Flags().StringVar(&runAudit, "audit", "", "audit store: memory, sqlite://<path> or a storage URL")
	cmd.Flags().StringVarP(&runOutput, "output", "o", "", "write the workflow context to this file instead of stdout")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("invoices")
	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := reconciler.LoadConfig(ctx, configURL)
	if err != nil {
		return err
	}
	if runAudit != "" {
		cfg.Audit = reconciler.ParseAudit(runAudit)
	}
	log := logger.New(cfg.Log, cmd.ErrOrStderr())

	options := []reconciler.Option{
		reconciler.WithConfig(cfg),
		reconciler.WithLogger(log),
		reconciler.WithProgress(func(s progress.Snapshot) {
			log.Debug().Str("batch_id", s.BatchID).Int("matched", s.MatchedTasks).Int("drafted", s.DraftedTasks).Int("failed", s.FailedTasks).Msg("progress")
		}),
	}
	if cfg.Tracing.Enabled {
		options = append(options, reconciler.WithTracing("reconciler", "cli", cfg.Tracing.File))
	}
	srv, err := reconciler.New(ctx, options...)
	if err != nil {
		return err
	}
	defer srv.Close()

	batchID, invoices, err := reconciler.LoadInvoices(ctx, runInvoices)
	if err != nil {
		return err
	}
	if runBatchID != "" {
		batchID = runBatchID
	}
	runOptions := []reconciler.RunOption{reconciler.WithBatchID(batchID)}
	if cmd.Flags().Changed("min-confidence") {
		runOptions = append(runOptions, reconciler.WithMinConfidence(runMinConfidence))
	}
	wfCtx, err := srv.Run(ctx, runData, runModel, invoices, runOptions...)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(wfCtx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow context: %w", err)
	}
	if runOutput != "" {
		return os.WriteFile(runOutput, data, 0o644)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
