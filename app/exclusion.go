package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/exclusion"
)

func init() { //nolint: gochecknoinits
	exclusionAddCmd.Flags().StringVar(&exclusionReason, "reason", "", "why the account is not a student")

	exclusionCmd.AddCommand(exclusionListCmd, exclusionAddCmd, exclusionRemoveCmd)
	rootCmd.AddCommand(exclusionCmd)
}

var (
	exclusionReason string

	exclusionCmd = &cobra.Command{
		Use:   "exclusion",
		Short: "Hide directory accounts from the student listing",
		Long: `Hide directory accounts from the student listing.

Exclusions only affect reporting. Scheduled assignments of an excluded
account are still reconciled.`,
	}

	exclusionListCmd = &cobra.Command{
		Use:   "list",
		Short: "List exclusions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, db *gorm.DB) error {
				all, err := exclusion.GetAll(ctx, db)
				if err != nil {
					return err
				}

				rows := [][]any{{"STUDENT", "EXCLUDED AT", "REASON"}}
				for _, e := range all {
					rows = append(rows, []any{e.StudentID, e.ExcludedAt.Format(time.RFC3339), e.Reason})
				}

				return table(cmd.OutOrStdout(), rows)
			})
		},
	}

	exclusionAddCmd = &cobra.Command{
		Use:   "add <student>",
		Short: "Exclude an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *gorm.DB) error {
				if _, err := exclusion.Add(ctx, db, args[0], exclusionReason); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "excluded %s\n", args[0])

				return err
			})
		},
	}

	exclusionRemoveCmd = &cobra.Command{
		Use:   "remove <student>",
		Short: "Remove an exclusion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *gorm.DB) error {
				if err := exclusion.Remove(ctx, db, args[0]); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed exclusion of %s\n", args[0])

				return err
			})
		},
	}
)
