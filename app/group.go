package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/classgroup"
)

func init() { //nolint: gochecknoinits
	groupCreateCmd.Flags().StringVar(&groupDescription, "description", "", "free text description")

	groupCmd.AddCommand(
		groupListCmd,
		groupCreateCmd,
		groupDeleteCmd,
		groupMembersCmd,
		groupAddMemberCmd,
		groupRemoveMemberCmd,
	)
	rootCmd.AddCommand(groupCmd)
}

var (
	groupDescription string

	groupCmd = &cobra.Command{
		Use:   "group",
		Short: "Manage class groups",
	}

	groupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List class groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, db *gorm.DB) error {
				groups, err := classgroup.GetAll(ctx, db)
				if err != nil {
					return err
				}

				rows := [][]any{{"ID", "NAME", "MEMBERS", "DESCRIPTION"}}

				for _, g := range groups {
					members, err := classgroup.MemberIDs(ctx, db, g.ID)
					if err != nil {
						return err
					}

					rows = append(rows, []any{g.ID, g.Name, len(members), g.Description})
				}

				return table(cmd.OutOrStdout(), rows)
			})
		},
	}

	groupCreateCmd = &cobra.Command{
		Use:   "create <name>",
		Short: "Create a class group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *gorm.DB) error {
				g, err := classgroup.Create(ctx, db, classgroup.Input{Name: args[0], Description: groupDescription})
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created class group %d\n", g.ID)

				return err
			})
		},
	}

	groupDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a class group with its members and assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withDB(func(ctx context.Context, db *gorm.DB) error {
				if err := classgroup.Delete(ctx, db, id); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted class group %d\n", id)

				return err
			})
		},
	}

	groupMembersCmd = &cobra.Command{
		Use:   "members <id>",
		Short: "List the student ids of a class group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withDB(func(ctx context.Context, db *gorm.DB) error {
				if _, err := classgroup.Get(ctx, db, id); err != nil {
					return err
				}

				ids, err := classgroup.MemberIDs(ctx, db, id)
				if err != nil {
					return err
				}

				for _, s := range ids {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), s); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}

	groupAddMemberCmd = &cobra.Command{
		Use:   "add-member <id> <student>...",
		Short: "Add students to a class group",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withDB(func(ctx context.Context, db *gorm.DB) error {
				for _, student := range args[1:] {
					if err := classgroup.AddMember(ctx, db, id, student); err != nil {
						return fmt.Errorf("add %s: %w", student, err)
					}
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "added %d member(s) to class group %d\n", len(args)-1, id)

				return err
			})
		},
	}

	groupRemoveMemberCmd = &cobra.Command{
		Use:   "remove-member <id> <student>",
		Short: "Remove a student from a class group",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withDB(func(ctx context.Context, db *gorm.DB) error {
				if err := classgroup.RemoveMember(ctx, db, id, args[1]); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s from class group %d\n", args[1], id)

				return err
			})
		},
	}
)
