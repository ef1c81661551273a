// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the roo CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roo",
		Short: "Roo - a scriptable object database for text worlds",
		Long: `Roo is an object database engine for text worlds: objects with
inherited properties and Lua verbs, a command matcher, and snapshot
persistence to files, bbolt or PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/roo/config.yaml)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewSnapshotCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewGenSchemaCmd())

	return cmd
}
