package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sgaunet/hcconsole/pkg/config"
	"github.com/sgaunet/hcconsole/pkg/dbinit"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the session store migrations to the postgres database",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l := initTrace(cfg)
		if cfg.Session.Backend != config.BackendPostgres {
			l.Info("session backend needs no migration", slog.String("backend", cfg.Session.Backend))
			return nil
		}
		if cfg.Session.DatabaseURL == "" {
			return config.ErrMissingDatabaseURL
		}
		if err := dbinit.MigrateDatabase(cfg.Session.DatabaseURL, l); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
