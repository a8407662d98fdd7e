// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/8srael/alx-backend-user-data/internal/config"
)

// newMigrateCmd creates the migrate command group. Only the postgres store
// uses versioned migrations; sqlite migrates itself on open.
func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL users schema",
		Long: `Apply or roll back the versioned users schema. Requires
store.driver=postgres and a DSN from store.dsn or DATABASE_URL.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: a.withMigrator(func(cmd *cobra.Command, m Migrator) error {
			pending, err := m.PendingMigrations()
			if err != nil {
				return err //nolint:wrapcheck // migrator errors carry codes
			}
			if len(pending) == 0 {
				cmd.Println("Schema is up to date")
				return nil
			}
			if err := m.Up(); err != nil {
				return err //nolint:wrapcheck // migrator errors carry codes
			}
			cmd.Printf("Applied %d migration(s)\n", len(pending))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (drops the users table)",
		Args:  cobra.NoArgs,
		RunE: a.withMigrator(func(cmd *cobra.Command, m Migrator) error {
			if err := m.Down(); err != nil {
				return err //nolint:wrapcheck // migrator errors carry codes
			}
			cmd.Println("Rolled back all migrations")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: a.withMigrator(func(cmd *cobra.Command, m Migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err //nolint:wrapcheck // migrator errors carry codes
			}
			if dirty {
				cmd.Printf("Version: %d (dirty)\n", v)
				return nil
			}
			cmd.Printf("Version: %d\n", v)
			return nil
		}),
	})

	return cmd
}

// withMigrator loads config, opens a Migrator and closes it after fn.
func (a *app) withMigrator(fn func(cmd *cobra.Command, m Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
		if a.cfg.Store.Driver != config.DriverPostgres {
			return oops.Code("CONFIG_INVALID").
				With("store.driver", a.cfg.Store.Driver).
				Errorf("migrations require store.driver=postgres")
		}

		m, err := a.deps.MigratorFactory(a.cfg.Store.DSN)
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		return fn(cmd, m)
	}
}
