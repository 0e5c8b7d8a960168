package main

import (
	"fmt"

	"insurance-settlement/config"
	"insurance-settlement/migrations"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|down|status|version|redo|up-to VERSION|down-to VERSION>",
		Short: "Apply the embedded database migrations",
		Long: `Run a goose command against the configured PostgreSQL database.

Examples:
  backofficectl migrate up
  backofficectl migrate status
  backofficectl migrate down-to 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.StorageDriverPostgres {
				return fmt.Errorf("migrate needs the %s storage driver, configured: %s", config.StorageDriverPostgres, cfg.Storage.Driver)
			}
			if err := migrations.Run(cmd.Context(), cfg.Database.DSN(), args[0], args[1:]...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", args[0])
			return nil
		},
	}
}
