package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/assignment"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/timetable"
)

func init() { //nolint: gochecknoinits
	scheduleAssignCmd.Flags().IntVar(&assignIn.DayOfWeek, "day", 0, "school day, Monday=0 ... Friday=4")
	scheduleAssignCmd.Flags().IntVar(&assignIn.BlockNumber, "block", 0, "lesson block, zero based")
	scheduleAssignCmd.Flags().StringVar(&assignIn.StudentID, "student", "", "directory id of the student")
	scheduleAssignCmd.Flags().UintVar(&assignIn.ClassGroupID, "group", 0, "id of the class group")
	scheduleAssignCmd.MarkFlagsMutuallyExclusive("student", "group")
	scheduleAssignCmd.MarkFlagsOneRequired("student", "group")

	scheduleCmd.AddCommand(scheduleListCmd, scheduleAssignCmd, scheduleUnassignCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var (
	assignIn assignment.Input

	scheduleCmd = &cobra.Command{
		Use:   "schedule",
		Short: "Manage the weekly schedule",
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all assignments with the group they map onto",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cal, err := timetable.New(cfg.Schedule)
			if err != nil {
				return err
			}

			namer, _, err := timetable.NewNamer(cfg.Schedule, cal)
			if err != nil {
				return err
			}

			return withDB(func(ctx context.Context, db *gorm.DB) error {
				all, err := assignment.GetAll(ctx, db)
				if err != nil {
					return err
				}

				rows := [][]any{{"ID", "DAY", "BLOCK", "GROUP", "STUDENT", "CLASS GROUP"}}

				for _, a := range all {
					student, classGroup := "-", "-"
					if a.StudentID != nil {
						student = *a.StudentID
					}

					if a.ClassGroupID != nil {
						classGroup = strconv.FormatUint(uint64(*a.ClassGroupID), 10)
					}

					label := strconv.Itoa(a.BlockNumber)
					if b, ok := cal.Block(a.BlockNumber); ok {
						label = b.Label
					}

					rows = append(rows, []any{
						a.ID,
						cal.DayName(a.DayOfWeek),
						label,
						namer.SlotGroupName(a.DayOfWeek, a.BlockNumber),
						student,
						classGroup,
					})
				}

				return table(cmd.OutOrStdout(), rows)
			})
		},
	}

	scheduleAssignCmd = &cobra.Command{
		Use:   "assign",
		Short: "Assign a student or a class group to a slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cal, err := timetable.New(cfg.Schedule)
			if err != nil {
				return err
			}

			assignIn.Blocks = cal.BlockNumbers()

			return withDB(func(ctx context.Context, db *gorm.DB) error {
				a, err := assignment.Create(ctx, db, assignIn)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created assignment %d\n", a.ID)

				return err
			})
		},
	}

	scheduleUnassignCmd = &cobra.Command{
		Use:   "unassign <id>",
		Short: "Delete an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withDB(func(ctx context.Context, db *gorm.DB) error {
				if err := assignment.Delete(ctx, db, id); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted assignment %d\n", id)

				return err
			})
		},
	}
)

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s) //nolint:err113
	}

	return uint(id), nil
}
