// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/roomoo/roo/internal/script"
	"github.com/roomoo/roo/internal/seed"
	"github.com/roomoo/roo/internal/world"
)

// NewSeedCmd creates the seed subcommand and its children.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Work with world seed files",
		Long:  `Work with the YAML seed files that build a fresh world.`,
	}
	cmd.AddCommand(newSeedValidateCmd())
	cmd.AddCommand(newSeedMinimalCmd())
	return cmd
}

func newSeedValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a seed file without starting the server",
		Long: `Validates a seed file against the seed schema, then builds it into a
scratch database, compiling every verb. Does NOT start the server or touch
any snapshot store. Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch seed errors early:
  roo seed validate world.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedValidate(cmd, args[0])
		},
	}
}

func runSeedValidate(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is the user's argument
	if err != nil {
		return oops.In("seed").With("file", path).Wrapf(err, "read seed")
	}
	if err := seed.ValidateSchema(data); err != nil {
		return oops.In("seed").With("file", path).Wrap(err)
	}
	s, err := seed.Parse(data)
	if err != nil {
		return oops.In("seed").With("file", path).Wrap(err)
	}
	db := world.NewDatabase()
	if _, err := seed.Apply(db, s, seed.WithCodeCheck(script.ValidateCode)); err != nil {
		return oops.In("seed").With("file", path).Wrap(err)
	}
	cmd.Printf("%s: valid seed (%d seed objects, %d objects built)\n", path, len(s.Objects), db.Len())
	return nil
}

func newSeedMinimalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "minimal",
		Short: "Print the built-in minimal seed",
		Long:  `Print the built-in minimal seed, a starting point for your own world.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(seed.MinimalYAML())
			return err
		},
	}
}
