// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package store

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/samber/oops"

	"github.com/roomoo/roo/internal/world"
)

const (
	jsonExt = ".json"
	zstdExt = ".json.zst"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// FileStore keeps the newest snapshot in <base>.current.json (or .json.zst)
// and rotates the previous ones to <base>.backup.<unix-nanos>.json[.zst].
type FileStore struct {
	dir      string
	base     string
	compress bool
	keep     int
	now      func() time.Time

	mu sync.Mutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithCompression writes zstd-compressed snapshots.
func WithCompression(on bool) FileOption {
	return func(s *FileStore) { s.compress = on }
}

// WithKeepBackups sets how many rotated backups are kept. Zero keeps none.
func WithKeepBackups(n int) FileOption {
	return func(s *FileStore) {
		if n >= 0 {
			s.keep = n
		}
	}
}

// withClock overrides the time source used for backup names.
func withClock(now func() time.Time) FileOption {
	return func(s *FileStore) { s.now = now }
}

// NewFileStore creates dir if needed and returns a store writing there.
func NewFileStore(dir, base string, opts ...FileOption) (*FileStore, error) {
	if base == "" {
		base = "roo"
	}
	if strings.ContainsAny(base, `/\`) {
		return nil, oops.In("store").Code("INVALID_BASENAME").
			With("basename", base).
			Errorf("snapshot base name must not contain path separators")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, oops.In("store").With("dir", dir).Wrapf(err, "create snapshot directory")
	}
	s := &FileStore{dir: dir, base: base, keep: 3, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FileStore) ext() string {
	if s.compress {
		return zstdExt
	}
	return jsonExt
}

func (s *FileStore) currentPath(ext string) string {
	return filepath.Join(s.dir, s.base+".current"+ext)
}

// CurrentPath returns the path the next Save writes.
func (s *FileStore) CurrentPath() string { return s.currentPath(s.ext()) }

// Save writes snap as the current snapshot. The write goes to a temporary
// file that is synced and renamed into place, so a crash leaves either the
// old or the new snapshot. The previous current file becomes a backup.
func (s *FileStore) Save(ctx context.Context, snap *world.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return oops.In("store").Wrap(err)
	}
	data, err := world.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if s.compress {
		if data, err = compress(data); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, s.base+".tmp-*")
	if err != nil {
		return oops.In("store").With("dir", s.dir).Wrapf(err, "create temporary snapshot")
	}
	defer func() { _ = os.Remove(tmp.Name()) }() //nolint:errcheck // best-effort cleanup after rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return oops.In("store").With("file", tmp.Name()).Wrapf(err, "write snapshot")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return oops.In("store").With("file", tmp.Name()).Wrapf(err, "sync snapshot")
	}
	if err := tmp.Close(); err != nil {
		return oops.In("store").With("file", tmp.Name()).Wrapf(err, "close snapshot")
	}

	if err := s.rotate(); err != nil {
		return err
	}
	target := s.CurrentPath()
	if err := os.Rename(tmp.Name(), target); err != nil {
		return oops.In("store").With("file", target).Wrapf(err, "install snapshot")
	}
	slog.DebugContext(ctx, "snapshot saved", "file", target, "bytes", len(data))
	return s.prune()
}

// rotate turns every current file into a backup.
func (s *FileStore) rotate() error {
	stamp := strconv.FormatInt(s.now().UnixNano(), 10)
	for _, ext := range []string{jsonExt, zstdExt} {
		cur := s.currentPath(ext)
		if _, err := os.Stat(cur); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		backup := filepath.Join(s.dir, s.base+".backup."+stamp+ext)
		if err := os.Rename(cur, backup); err != nil {
			return oops.In("store").With("file", cur).Wrapf(err, "rotate snapshot")
		}
	}
	return nil
}

type backupFile struct {
	path  string
	stamp int64
}

// Backups lists the rotated snapshots, newest first.
func (s *FileStore) Backups() ([]string, error) {
	files, err := s.backups()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

func (s *FileStore) backups() ([]backupFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, oops.In("store").With("dir", s.dir).Wrapf(err, "list snapshots")
	}
	prefix := s.base + ".backup."
	var out []backupFile
	for _, e := range entries {
		name := e.Name()
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || e.IsDir() {
			continue
		}
		stampStr, _, _ := strings.Cut(rest, ".")
		stamp, err := strconv.ParseInt(stampStr, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, backupFile{path: filepath.Join(s.dir, name), stamp: stamp})
	}
	slices.SortFunc(out, func(a, b backupFile) int {
		switch {
		case a.stamp > b.stamp:
			return -1
		case a.stamp < b.stamp:
			return 1
		default:
			return strings.Compare(a.path, b.path)
		}
	})
	return out, nil
}

func (s *FileStore) prune() error {
	files, err := s.backups()
	if err != nil {
		return err
	}
	if len(files) <= s.keep {
		return nil
	}
	for _, f := range files[s.keep:] {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return oops.In("store").With("file", f.path).Wrapf(err, "remove old backup")
		}
	}
	return nil
}

// Load reads the current snapshot. Compressed and plain files are both
// recognised regardless of the store's compression setting.
func (s *FileStore) Load(ctx context.Context) (*world.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.In("store").Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ext := range []string{s.ext(), zstdExt, jsonExt} {
		path := s.currentPath(ext)
		data, err := os.ReadFile(path) //nolint:gosec // path is built from configured dir and base name
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, oops.In("store").With("file", path).Wrapf(err, "read snapshot")
		}
		return ReadSnapshot(path, data)
	}
	return nil, noSnapshot(s.dir)
}

// ReadSnapshot decodes snapshot file contents, decompressing them first
// when they are a zstd frame.
func ReadSnapshot(where string, data []byte) (*world.Snapshot, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		plain, err := decompress(data)
		if err != nil {
			return nil, corruptSnapshot(where, err)
		}
		data = plain
	}
	return decode(where, data)
}

// WriteSnapshot encodes snap for a file at path, compressing it when the
// path ends in .zst.
func WriteSnapshot(path string, snap *world.Snapshot) error {
	data, err := world.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".zst") {
		if data, err = compress(data); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return oops.In("store").With("file", path).Wrapf(err, "write snapshot")
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, oops.In("store").Wrapf(err, "create zstd encoder")
	}
	defer enc.Close() //nolint:errcheck // EncodeAll does not use the stream state
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, oops.In("store").Wrapf(err, "create zstd decoder")
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, oops.In("store").Wrapf(err, "decompress snapshot")
	}
	return out, nil
}
