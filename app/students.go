package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/daemon"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/report"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(studentsCmd)
}

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List directory users that are not excluded",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		core, err := daemon.Build(ctx, &cfg)
		if err != nil {
			return err
		}

		defer func() { _ = core.Close() }()

		students, err := report.Students(ctx, core.Directory, core.Store)
		if err != nil {
			return err
		}

		rows := [][]any{{"ID", "USERNAME", "NAME", "EMAIL", "ACTIVE"}}
		for _, s := range students {
			rows = append(rows, []any{s.ID, s.Username, s.Name, s.Email, s.Active})
		}

		return table(cmd.OutOrStdout(), rows)
	},
}
