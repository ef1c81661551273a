// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/roomoo/roo/internal/config"
	"github.com/roomoo/roo/internal/store"
)

// migrator wraps the methods used from store.Migrator.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// newMigrator creates the migrator; tests replace it.
var newMigrator = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run snapshot table migrations",
		Long: `Manage the PostgreSQL schema used by the postgres snapshot store.
The database URL comes from store.postgres_url in the config file or the
DATABASE_URL environment variable.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			pending, err := m.PendingMigrations()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				cmd.Println("No pending migrations")
				return nil
			}
			if err := m.Up(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
			}
			cmd.Printf("Applied %d migration(s)\n", len(pending))
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (all, or the given number of steps)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			if len(args) == 0 {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Rolled back all migrations")
				return nil
			}
			steps, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if steps <= 0 {
				return oops.Code("INVALID_VERSION").Errorf("steps must be positive, got %d", steps)
			}
			if err := m.Steps(-steps); err != nil {
				return err
			}
			cmd.Printf("Rolled back %d migration(s)\n", steps)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied migration version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			name := "none"
			if version > 0 {
				if n, nameErr := store.MigrationName(version); nameErr == nil && n != "" {
					name = n
				}
			}
			cmd.Printf("version: %d (%s)\n", version, name)
			if dirty {
				cmd.Println("database is dirty: fix the schema, then run 'roo migrate force <version>'")
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", version)
			return nil
		}),
	})
	return cmd
}

// withMigrator resolves the database URL and opens a migrator around fn.
func withMigrator(fn func(cmd *cobra.Command, m migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, nil)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if cfg.Store.PostgresURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("store.postgres_url or DATABASE_URL is required")
		}
		m, err := newMigrator(cfg.Store.PostgresURL)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		defer func() { _ = m.Close() }()
		return fn(cmd, m, args)
	}
}

// parseForceVersion reads a leading integer, as fmt.Sscanf does.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("invalid version %q: %v", s, err)
	}
	return version, nil
}
