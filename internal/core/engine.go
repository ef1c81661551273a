// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/roomoo/roo/internal/store"
	"github.com/roomoo/roo/internal/world"
)

// Load failure policies.
const (
	OnLoadFailureBootstrap = "bootstrap"
	OnLoadFailureFail      = "fail"
)

// EngineConfig describes how an Engine starts.
type EngineConfig struct {
	// Store persists checkpoints. Required.
	Store store.Store
	// Fresh fills an empty database when no usable snapshot exists.
	// Defaults to world.Bootstrap.
	Fresh func(db *world.Database) error
	// OnLoadFailure is OnLoadFailureBootstrap or OnLoadFailureFail and
	// decides what a corrupt snapshot does. A missing snapshot always
	// bootstraps.
	OnLoadFailure string
	// Options configure the database, whether loaded or fresh.
	Options []world.Option
}

// Engine owns the shared database and its persistence.
type Engine struct {
	shared *Shared
	store  store.Store

	mu     sync.Mutex
	closed bool
}

// Start loads the newest snapshot from cfg.Store or builds a fresh world.
func Start(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, oops.In("core").Code(world.CodeInvalidArgument).Errorf("engine needs a store")
	}
	if cfg.Fresh == nil {
		cfg.Fresh = func(db *world.Database) error {
			_, err := world.Bootstrap(db)
			return err
		}
	}

	db, err := store.LoadDatabase(ctx, cfg.Store, cfg.Options...)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "world loaded from snapshot", "objects", db.Len())
	case errors.Is(err, store.ErrNoSnapshot):
		slog.InfoContext(ctx, "no snapshot found, starting a fresh world")
		db, err = freshWorld(cfg)
	case errors.Is(err, store.ErrCorruptSnapshot) && cfg.OnLoadFailure == OnLoadFailureBootstrap:
		slog.WarnContext(ctx, "snapshot unusable, starting a fresh world", "error", err)
		db, err = freshWorld(cfg)
	}
	if err != nil {
		return nil, oops.In("core").With("operation", "start").Wrap(err)
	}
	return NewEngine(NewShared(db), cfg.Store), nil
}

func freshWorld(cfg EngineConfig) (*world.Database, error) {
	db := world.NewDatabase(cfg.Options...)
	if err := cfg.Fresh(db); err != nil {
		return nil, err
	}
	return db, nil
}

// NewEngine wraps an already running database.
func NewEngine(shared *Shared, s store.Store) *Engine {
	return &Engine{shared: shared, store: s}
}

// Shared returns the guarded database.
func (e *Engine) Shared() *Shared { return e.shared }

// Checkpoint exports the database under the read lock and saves it after
// the lock is released. Checkpoints do not overlap.
func (e *Engine) Checkpoint(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return oops.In("core").Code(world.CodeInvalidArgument).Errorf("engine is closed")
	}
	return e.checkpoint(ctx)
}

func (e *Engine) checkpoint(ctx context.Context) error {
	start := time.Now()
	snap, err := e.shared.Export(ctx)
	if err != nil {
		return err
	}
	if err := e.store.Save(ctx, snap); err != nil {
		CheckpointFailures.Inc()
		return oops.In("core").With("operation", "checkpoint").Wrap(err)
	}
	CheckpointDuration.Observe(time.Since(start).Seconds())
	slog.InfoContext(ctx, "checkpoint saved",
		"objects", len(snap.Objects),
		"duration", time.Since(start),
	)
	return nil
}

// Run checkpoints every interval until ctx is done. A failed checkpoint is
// logged and retried at the next tick.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.Checkpoint(ctx); err != nil {
				slog.ErrorContext(ctx, "periodic checkpoint failed", "error", err)
			}
		}
	}
}

// Close writes a final checkpoint and closes the store. Later calls are
// no-ops.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	saveErr := e.checkpoint(ctx)
	closeErr := e.store.Close()
	if saveErr != nil {
		return saveErr
	}
	if closeErr != nil {
		return oops.In("core").With("operation", "close store").Wrap(closeErr)
	}
	return nil
}
