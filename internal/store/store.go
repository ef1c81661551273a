// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

// Package store persists world snapshots: plain or zstd-compressed JSON
// files with backup rotation, a bbolt file keyed by generation, or a
// PostgreSQL table managed by embedded migrations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/roomoo/roo/internal/world"
)

// Driver names accepted by Open.
const (
	DriverFile     = "file"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// CodeNoSnapshot marks a store that holds no snapshot yet.
const CodeNoSnapshot = "NO_SNAPSHOT"

var (
	// ErrNoSnapshot is returned by Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot")
	// ErrCorruptSnapshot is returned by Load when the stored snapshot
	// cannot be decoded or does not describe a consistent database.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Store saves and loads whole-database snapshots.
type Store interface {
	// Save persists snap as the newest snapshot.
	Save(ctx context.Context, snap *world.Snapshot) error
	// Load returns the newest snapshot.
	Load(ctx context.Context) (*world.Snapshot, error)
	// Close releases resources held by the store.
	Close() error
}

func noSnapshot(where string) error {
	return oops.In("store").Code(CodeNoSnapshot).With("location", where).Wrap(ErrNoSnapshot)
}

func corruptSnapshot(where string, err error) error {
	return oops.In("store").
		Code(world.CodeCorruptSnapshot).
		With("location", where).
		Wrap(fmt.Errorf("%w: %w", ErrCorruptSnapshot, err))
}

// decode turns stored bytes back into a snapshot, validating them against
// the snapshot schema first.
func decode(where string, data []byte) (*world.Snapshot, error) {
	snap, err := world.DecodeSnapshot(data)
	if err != nil {
		return nil, corruptSnapshot(where, err)
	}
	return snap, nil
}

// LoadDatabase loads the newest snapshot from s and rebuilds the database
// from it. Failures wrap ErrNoSnapshot or ErrCorruptSnapshot so the caller
// can decide whether to bootstrap a fresh world.
func LoadDatabase(ctx context.Context, s Store, opts ...world.Option) (*world.Database, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	db, err := world.Import(snap, opts...)
	if err != nil {
		return nil, corruptSnapshot("import", err)
	}
	return db, nil
}

// Options selects and configures a store driver.
type Options struct {
	Driver      string
	Dir         string
	BaseName    string
	KeepBackups int
	Compress    bool
	BoltPath    string
	PostgresURL string
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFileStore(opts.Dir, opts.BaseName,
			WithCompression(opts.Compress),
			WithKeepBackups(opts.KeepBackups),
		)
	case DriverBolt:
		return NewBoltStore(opts.BoltPath, WithBoltKeep(opts.KeepBackups+1))
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.PostgresURL, WithPostgresKeep(opts.KeepBackups+1))
	default:
		return nil, oops.In("store").
			Code("UNKNOWN_DRIVER").
			With("driver", opts.Driver).
			Errorf("unknown store driver %q", opts.Driver)
	}
}
