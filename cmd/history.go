package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/collabsched/core/ledger"
	"github.com/kilianp07/collabsched/core/metrics"
	"github.com/kilianp07/collabsched/pkg/export"
)

var historyQuery struct {
	run    string
	name   string
	status string
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded uploads from the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Upload.LedgerPath == "" {
			return fmt.Errorf("upload.ledger_path is not set")
		}
		store, err := ledger.Open(cfg.Upload.LedgerPath, cfg.Upload.LedgerMaxSizeMB, cfg.Upload.LedgerMaxBackups)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		recs, err := store.Query(cmd.Context(), ledger.Query{
			RunID:  historyQuery.run,
			Name:   historyQuery.name,
			Status: metrics.Status(historyQuery.status),
		})
		if err != nil {
			return err
		}
		return export.Write(cmd.OutOrStdout(), historyQuery.format, recs)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyQuery.run, "run", "", "only this run ID")
	historyCmd.Flags().StringVar(&historyQuery.name, "name", "", "only this class name")
	historyCmd.Flags().StringVar(&historyQuery.status, "status", "", "only this status (created, failed, invalid, skipped)")
	historyCmd.Flags().StringVarP(&historyQuery.format, "format", "f", "table", "output format (table, json, csv)")
	rootCmd.AddCommand(historyCmd)
}
