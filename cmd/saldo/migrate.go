package main

import (
	"github.com/spf13/cobra"

	"saldo/internal/backend"
	"saldo/internal/cli"
	"saldo/internal/log"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  `Apply the embedded schema migrations to the configured SQLite or Postgres database. The memory backend has nothing to migrate.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg).WithComponent(log.ComponentStorage)

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			version, err := backend.Migrate(bcfg)
			if err != nil {
				return err
			}
			logger.Info("Migrations applied",
				"backend", bcfg.Type.String(),
				"schema_version", version,
				log.FieldOperation, "migrate")
			return nil
		},
	}
}
