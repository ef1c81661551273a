// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

// Package core holds the concurrency wrapper around the object database and
// the permission-checked API that scripts and commands use to reach it.
package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/roomoo/roo/internal/world"
)

// Shared guards one world.Database with a single reader/writer lock.
// Mutations hold the write lock for their whole execution and lookups hold
// the read lock. Callbacks must not do I/O, run scripts, or let borrowed
// *world.Object handles escape.
type Shared struct {
	mu sync.RWMutex
	db *world.Database
}

// NewShared wraps db.
func NewShared(db *world.Database) *Shared {
	return &Shared{db: db}
}

// Read runs fn under the read lock. op names the operation for metrics.
func (s *Shared) Read(ctx context.Context, op string, fn func(db *world.Database) error) (err error) {
	if err := ctx.Err(); err != nil {
		return oops.In("core").With("operation", op).Wrap(err)
	}
	waitStart := time.Now()
	s.mu.RLock()
	acquired := time.Now()
	defer func() {
		s.mu.RUnlock()
		recordLock(ModeRead, acquired.Sub(waitStart), time.Since(acquired))
		finish(ctx, op, err)
	}()
	return fn(s.db)
}

// Write runs fn under the write lock. op names the operation for metrics.
func (s *Shared) Write(ctx context.Context, op string, fn func(db *world.Database) error) (err error) {
	if err := ctx.Err(); err != nil {
		return oops.In("core").With("operation", op).Wrap(err)
	}
	waitStart := time.Now()
	s.mu.Lock()
	acquired := time.Now()
	defer func() {
		s.mu.Unlock()
		recordLock(ModeWrite, acquired.Sub(waitStart), time.Since(acquired))
		finish(ctx, op, err)
	}()
	return fn(s.db)
}

func finish(ctx context.Context, op string, err error) {
	if err == nil {
		recordOperation(op, OutcomeOK)
		return
	}
	code := world.CodeOf(err)
	if code == "" {
		code = "internal"
	}
	recordOperation(op, code)
	slog.DebugContext(ctx, "world operation failed", "op", op, "code", code, "error", err)
}

// Query runs fn under the read lock and returns its result.
func Query[T any](ctx context.Context, s *Shared, op string, fn func(db *world.Database) (T, error)) (T, error) {
	var out T
	err := s.Read(ctx, op, func(db *world.Database) error {
		v, err := fn(db)
		out = v
		return err
	})
	return out, err
}

// Mutate runs fn under the write lock and returns its result.
func Mutate[T any](ctx context.Context, s *Shared, op string, fn func(db *world.Database) (T, error)) (T, error) {
	var out T
	err := s.Write(ctx, op, func(db *world.Database) error {
		v, err := fn(db)
		out = v
		return err
	})
	return out, err
}

// Export takes a snapshot under the read lock.
func (s *Shared) Export(ctx context.Context) (*world.Snapshot, error) {
	return Query(ctx, s, "export", func(db *world.Database) (*world.Snapshot, error) {
		return db.Export(), nil
	})
}

// Replace swaps in a different database, for example one restored from a
// snapshot.
func (s *Shared) Replace(db *world.Database) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = db
}
