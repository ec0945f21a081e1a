package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configURL string
	envFile   string
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reconciler",
		Short:         "Reconcile invoices against purchase orders and draft dispute emails for approval",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				_ = godotenv.Load()
				return nil
			}
			return godotenv.Load(envFile)
		},
	}
	cmd.PersistentFlags().StringVarP(&configURL, "config", "c", "", "configuration YAML URL")
	cmd.PersistentFlags().StringVar(&envFile, "env", "", ".env file (default ./.env when present)")
	cmd.AddCommand(runCmd(), auditCmd())
	return cmd
}
