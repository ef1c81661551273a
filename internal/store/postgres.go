// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/roomoo/roo/internal/world"
)

// poolIface is the subset of *pgxpool.Pool the store uses, so tests can
// substitute pgxmock.
type poolIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore keeps snapshots as JSONB rows, one per generation. The
// schema is managed by Migrator.
type PostgresStore struct {
	pool    poolIface
	keep    int
	retries uint64
	backoff time.Duration
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresKeep sets how many generations are retained, including the newest.
func WithPostgresKeep(n int) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.keep = n
		}
	}
}

// WithRetry sets how often a transient failure is retried and the initial
// backoff between attempts.
func WithRetry(retries uint64, backoff time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		s.retries = retries
		s.backoff = backoff
	}
}

func newPostgresStore(pool poolIface, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		pool:    pool,
		keep:    4,
		retries: 3,
		backoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewPostgresStore connects to dsn, retrying while the server comes up.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.In("store").Code("DB_CONNECT_FAILED").Wrapf(err, "parse database url")
	}
	s := newPostgresStore(pool, opts...)
	err = retry.Do(ctx, s.backoffPolicy(), func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.In("store").Code("DB_CONNECT_FAILED").Wrapf(err, "connect to database")
	}
	return s, nil
}

func (s *PostgresStore) backoffPolicy() retry.Backoff {
	return retry.WithMaxRetries(s.retries, retry.NewExponential(s.backoff))
}

// transient reports whether err is worth retrying.
func transient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsTransactionRollback(pgErr.Code)
	}
	return pgconn.SafeToRetry(err)
}

// Save inserts snap as a new generation and prunes old generations in one
// transaction. Transient failures are retried.
func (s *PostgresStore) Save(ctx context.Context, snap *world.Snapshot) error {
	data, err := world.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	err = retry.Do(ctx, s.backoffPolicy(), func(ctx context.Context) error {
		err := s.save(ctx, snap, data)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return oops.In("store").Code("SNAPSHOT_SAVE_FAILED").Wrapf(err, "save snapshot")
	}
	return nil
}

func (s *PostgresStore) save(ctx context.Context, snap *world.Snapshot, data []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.With("operation", "begin").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx,
		`INSERT INTO world_snapshots (format, saved_at, data, object_count, player_count)
		 VALUES ($1, $2, $3, $4, $5)`,
		snap.Format, snap.SavedAt, data, len(snap.Objects), len(snap.Players))
	if err != nil {
		return oops.With("operation", "insert snapshot").Wrap(err)
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM world_snapshots WHERE generation NOT IN
		 (SELECT generation FROM world_snapshots ORDER BY generation DESC LIMIT $1)`,
		s.keep)
	if err != nil {
		return oops.With("operation", "prune snapshots").Wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.With("operation", "commit").Wrap(err)
	}
	return nil
}

// Load returns the newest generation. A missing table (migrations not yet
// applied) counts as no snapshot.
func (s *PostgresStore) Load(ctx context.Context) (*world.Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM world_snapshots ORDER BY generation DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, noSnapshot("world_snapshots")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return nil, noSnapshot("world_snapshots")
	}
	if err != nil {
		return nil, oops.In("store").Code("SNAPSHOT_LOAD_FAILED").Wrapf(err, "load snapshot")
	}
	return decode("world_snapshots", data)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
