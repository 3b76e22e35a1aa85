package app

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/daemon"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/reconciler"
)

func init() { //nolint: gochecknoinits
	syncCmd.Flags().BoolVar(&fullSync, "full", false, "diff every assignment against the provider")

	rootCmd.AddCommand(syncCmd)
}

var (
	fullSync bool

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation cycle and print its report",
		Long: `Run one reconciliation cycle and print its report.

The membership cache starts empty in every process, so an incremental cycle
run from the command line only grants access for the slots open right now.
Use --full to also revoke stale memberships.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			core, err := daemon.Build(ctx, &cfg)
			if err != nil {
				return err
			}

			defer func() { _ = core.Close() }()

			var rep reconciler.Report

			if fullSync {
				rep, err = core.Reconciler.Full(ctx)
			} else {
				rep, err = core.Reconciler.Incremental(ctx)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if encErr := enc.Encode(rep); encErr != nil {
				return encErr
			}

			return err
		},
	}
)
