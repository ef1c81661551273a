// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/roomoo/roo/internal/seed"
	"github.com/roomoo/roo/internal/world"
)

// NewGenSchemaCmd creates the gen-schema subcommand.
func NewGenSchemaCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "gen-schema",
		Short: "Write the snapshot and seed JSON Schema files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenSchema(cmd, outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "schemas", "output directory")
	return cmd
}

func runGenSchema(cmd *cobra.Command, outDir string) error {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return oops.In("gen-schema").With("dir", outDir).Wrapf(err, "create directory")
	}
	for name, generate := range map[string]func() ([]byte, error){
		"snapshot.schema.json": world.GenerateSnapshotSchema,
		"seed.schema.json":     seed.GenerateSchema,
	} {
		data, err := generate()
		if err != nil {
			return oops.In("gen-schema").With("schema", name).Wrap(err)
		}
		outPath := filepath.Join(outDir, name)
		if err := os.WriteFile(outPath, data, 0o600); err != nil {
			return oops.In("gen-schema").With("file", outPath).Wrapf(err, "write schema")
		}
		cmd.Printf("Generated %s\n", outPath)
	}
	return nil
}
