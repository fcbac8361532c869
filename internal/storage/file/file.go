// Package file implements the JSON-file storage backend. Each key is stored
// as one record file under <data_dir>/.storage/, written atomically with the
// temp-file, fsync, rename pattern.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/yinkun-ui/yinkun/internal/storage"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// DirName is the directory under the data dir that holds record files.
const DirName = ".storage"

// Store implements types.Storage for a single key.
type Store struct {
	mu      sync.Mutex
	path    string
	key     string
	version int
	opts    storage.Options
	closed  bool
}

// New creates the storage directory if needed and returns a Store for key.
// Nothing is read until Load is called.
func New(dataDir, key string, version int, opts ...storage.Option) (*Store, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if dataDir == "" {
		dataDir = "."
	}
	dir := filepath.Join(dataDir, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", types.ErrStorage, dir, err)
	}
	return &Store{
		path:    filepath.Join(dir, key),
		key:     key,
		version: version,
		opts:    storage.Apply(opts...),
	}, nil
}

// Key returns the storage key.
func (s *Store) Key() string { return s.key }

// Version returns the schema version written by Save.
func (s *Store) Version() int { return s.version }

// Path returns the record file path.
func (s *Store) Path() string { return s.path }

// Load reads the record file. A missing file yields (nil, nil).
func (s *Store) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, types.ErrStorageClosed
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", types.ErrStorage, s.path, err)
	}

	rec, err := storage.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrStorage, s.path, err)
	}
	return storage.Resolve(rec, s.version, s.opts)
}

// Save atomically replaces the record file.
func (s *Store) Save(ctx context.Context, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStorageClosed
	}

	raw, err := storage.Encode(s.key, s.version, data)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrStorage, err)
	}
	if err := writeAtomic(s.path, raw); err != nil {
		return fmt.Errorf("%w: %v", types.ErrStorage, err)
	}
	s.opts.Log().Debug("saved record",
		slog.String("key", s.key),
		slog.Int("bytes", len(raw)))
	return nil
}

// Close marks the store closed. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// writeAtomic writes data to path using the temp-file, fsync, rename
// pattern so readers never observe a partial record.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
