// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package store

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/samber/oops"
	bbolt "go.etcd.io/bbolt"

	"github.com/roomoo/roo/internal/world"
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketMeta      = []byte("meta")

	keyFormat  = []byte("format")
	keySavedAt = []byte("saved_at")
)

// BoltStore keeps snapshots in a bbolt file, one key per generation.
type BoltStore struct {
	db   *bbolt.DB
	keep int
}

// BoltOption configures a BoltStore.
type BoltOption func(*BoltStore)

// WithBoltKeep sets how many generations are retained, including the newest.
func WithBoltKeep(n int) BoltOption {
	return func(s *BoltStore) {
		if n > 0 {
			s.keep = n
		}
	}
}

// NewBoltStore opens or creates the bbolt file at path.
func NewBoltStore(path string, opts ...BoltOption) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, oops.In("store").With("file", path).Wrapf(err, "open bolt store")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSnapshots, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, oops.In("store").With("file", path).Wrapf(err, "create bolt buckets")
	}
	s := &BoltStore{db: db, keep: 4}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func generationKey(gen uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, gen)
	return buf
}

// Save stores snap as a new generation and drops generations beyond the
// retention limit, all in one transaction.
func (s *BoltStore) Save(ctx context.Context, snap *world.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return oops.In("store").Wrap(err)
	}
	data, err := world.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		gen, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(generationKey(gen), data); err != nil {
			return err
		}
		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keyFormat, []byte(snap.Format)); err != nil {
			return err
		}
		if err := meta.Put(keySavedAt, []byte(snap.SavedAt.Format(time.RFC3339Nano))); err != nil {
			return err
		}
		return prune(b, s.keep)
	})
	if err != nil {
		return oops.In("store").With("file", s.db.Path()).Wrapf(err, "save snapshot")
	}
	return nil
}

// prune deletes the oldest keys of b until at most keep remain.
func prune(b *bbolt.Bucket, keep int) error {
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	if len(keys) <= keep {
		return nil
	}
	for _, k := range keys[:len(keys)-keep] {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the newest generation.
func (s *BoltStore) Load(ctx context.Context) (*world.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.In("store").Wrap(err)
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		_, v := tx.Bucket(bucketSnapshots).Cursor().Last()
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, oops.In("store").With("file", s.db.Path()).Wrapf(err, "load snapshot")
	}
	if data == nil {
		return nil, noSnapshot(s.db.Path())
	}
	return decode(s.db.Path(), data)
}

// Generations lists the stored generation numbers, oldest first.
func (s *BoltStore) Generations() ([]uint64, error) {
	var gens []uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, _ []byte) error {
			gens = append(gens, binary.BigEndian.Uint64(k))
			return nil
		})
	})
	if err != nil {
		return nil, oops.In("store").With("file", s.db.Path()).Wrapf(err, "list generations")
	}
	return gens, nil
}

// Close closes the bbolt file.
func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return oops.In("store").Wrapf(err, "close bolt store")
	}
	return nil
}
