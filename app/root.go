// Package app implements the main application commands.
package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/logger"
)

var (
	configPath string // directory holding main.toml
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hms-user-sync",
	Short: "Grants students identity provider group membership while their lessons run",
	Long: `hms-user-sync reconciles the weekly lesson schedule with group memberships
in Authentik or an LDAP directory. Students are added to the group of a lesson
slot shortly before the lesson starts and removed shortly after it ends.`,
	Args:         cobra.OnlyValidArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error

		if cfg, err = config.ReadConfig(configPath); err != nil {
			return err
		}

		return logger.Init(cfg.Log)
	},
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory containing main.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// withDB opens the configured database for the duration of fn.
func withDB(fn func(ctx context.Context, db *gorm.DB) error) error {
	gdb, err := db.Open(&cfg)
	if err != nil {
		return err
	}

	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	return fn(context.Background(), gdb)
}

// table writes aligned columns, the first row is the header.
func table(out io.Writer, rows [][]any) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd

	for _, row := range rows {
		for i, col := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}

			fmt.Fprint(w, col)
		}

		fmt.Fprintln(w)
	}

	return w.Flush()
}
