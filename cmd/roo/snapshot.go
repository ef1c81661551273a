// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package main

import (
	"context"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/roomoo/roo/internal/store"
	"github.com/roomoo/roo/internal/world"
)

// boltPrefix marks a snapshot location inside a bbolt file.
const boltPrefix = "bolt:"

// NewSnapshotCmd creates the snapshot subcommand and its children.
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and convert world snapshots",
		Long: `Inspect and convert world snapshots.

A snapshot location is one of:
  path/to/world.json        plain JSON file
  path/to/world.json.zst    zstd-compressed JSON file
  bolt:path/to/world.db     newest generation in a bbolt file
  postgres://...            newest row in a PostgreSQL database`,
	}
	cmd.AddCommand(newSnapshotValidateCmd())
	cmd.AddCommand(newSnapshotConvertCmd())
	return cmd
}

func newSnapshotValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <location>",
		Short: "Check that a snapshot loads into a consistent database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotValidate(cmd, args[0])
		},
	}
}

func runSnapshotValidate(cmd *cobra.Command, location string) error {
	ctx := commandContext(cmd)
	snap, err := readSnapshot(ctx, location)
	if err != nil {
		return err
	}
	db, err := world.Import(snap)
	if err != nil {
		return oops.In("snapshot").With("location", location).Wrap(err)
	}
	cmd.Printf("%s: valid snapshot (format %s, %d objects, %d players)\n",
		location, snap.Format, db.Len(), len(db.Players()))
	return nil
}

type convertConfig struct {
	from string
	to   string
}

func newSnapshotConvertCmd() *cobra.Command {
	cfg := &convertConfig{}
	cmd := &cobra.Command{
		Use:   "convert --from <location> --to <location>",
		Short: "Copy the newest snapshot from one location to another",
		Long: `Copy the newest snapshot from one location to another, for example
to compress a JSON file or to move a world between stores. The snapshot
is validated before it is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshotConvert(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.from, "from", "", "source snapshot location")
	cmd.Flags().StringVar(&cfg.to, "to", "", "destination snapshot location")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runSnapshotConvert(cmd *cobra.Command, cfg *convertConfig) error {
	ctx := commandContext(cmd)
	snap, err := readSnapshot(ctx, cfg.from)
	if err != nil {
		return err
	}
	if _, err := world.Import(snap); err != nil {
		return oops.In("snapshot").With("location", cfg.from).Wrap(err)
	}

	dst, err := openSnapshotLocation(ctx, cfg.to)
	if err != nil {
		return err
	}
	if err := dst.Save(ctx, snap); err != nil {
		_ = dst.Close() //nolint:errcheck // save error takes precedence
		return oops.In("snapshot").With("location", cfg.to).Wrap(err)
	}
	if err := dst.Close(); err != nil {
		return oops.In("snapshot").With("location", cfg.to).Wrap(err)
	}
	cmd.Printf("converted %s -> %s (%d objects)\n", cfg.from, cfg.to, len(snap.Objects))
	return nil
}

func readSnapshot(ctx context.Context, location string) (*world.Snapshot, error) {
	src, err := openSnapshotLocation(ctx, location)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	snap, err := src.Load(ctx)
	if err != nil {
		return nil, oops.In("snapshot").With("location", location).Wrap(err)
	}
	return snap, nil
}

// openSnapshotLocation maps a location string to a store.
func openSnapshotLocation(ctx context.Context, location string) (store.Store, error) {
	switch {
	case location == "":
		return nil, oops.In("snapshot").Code(world.CodeInvalidArgument).Errorf("snapshot location is empty")
	case strings.HasPrefix(location, boltPrefix):
		return store.NewBoltStore(strings.TrimPrefix(location, boltPrefix))
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		return store.NewPostgresStore(ctx, location)
	default:
		return snapshotFile(location), nil
	}
}

// snapshotFile is a single snapshot file, without backup rotation.
type snapshotFile string

func (f snapshotFile) Save(_ context.Context, snap *world.Snapshot) error {
	return store.WriteSnapshot(string(f), snap)
}

func (f snapshotFile) Load(_ context.Context) (*world.Snapshot, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, oops.In("snapshot").With("file", string(f)).Wrapf(err, "read snapshot")
	}
	return store.ReadSnapshot(string(f), data)
}

func (snapshotFile) Close() error { return nil }

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
