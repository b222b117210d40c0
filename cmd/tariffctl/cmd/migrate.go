package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"energy-tariffs/internal/app"
	"energy-tariffs/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema to the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Migrate(context.Background(), cfg.Store, logging.Logger); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.Store.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
