// Package sqlite implements the SQLite storage backend. Records live in a
// single database file shared by all keys; each Save also moves the value it
// replaces into record_history.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yinkun-ui/yinkun/internal/storage"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// DBFileName is the database file created under the data directory.
const DBFileName = "yinkun.db"

// DefaultHistoryLimit is the number of replaced values kept per key.
const DefaultHistoryLimit = 20

// Backend implements types.Storage and types.Historian for a single key.
type Backend struct {
	mu           sync.RWMutex
	attached     bool
	db           *sql.DB
	path         string
	key          string
	version      int
	historyLimit int
	opts         storage.Options
	now          func() time.Time
}

// Open creates the data directory if needed, opens (or creates) the
// database and ensures the schema exists.
func Open(dataDir, key string, version int, opts ...storage.Option) (*Backend, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", types.ErrStorage, dataDir, err)
	}

	path := filepath.Join(dataDir, DBFileName)
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", types.ErrStorage, path, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: applying schema: %v", types.ErrStorage, err)
		}
	}

	return &Backend{
		attached:     true,
		db:           db,
		path:         path,
		key:          key,
		version:      version,
		historyLimit: DefaultHistoryLimit,
		opts:         storage.Apply(opts...),
		now:          time.Now,
	}, nil
}

// Key returns the storage key.
func (b *Backend) Key() string { return b.key }

// Version returns the schema version written by Save.
func (b *Backend) Version() int { return b.version }

// Path returns the database file path.
func (b *Backend) Path() string { return b.path }

// SetHistoryLimit changes how many replaced values are kept. Zero disables
// history.
func (b *Backend) SetHistoryLimit(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 {
		n = 0
	}
	b.historyLimit = n
}

// Load returns the stored object for the key, or nil when absent.
func (b *Backend) Load(ctx context.Context) (map[string]any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStorageClosed
	}

	var version int
	var data string
	err := b.db.QueryRowContext(ctx,
		"SELECT version, data FROM records WHERE key = ?", b.key).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", types.ErrStorage, b.key, err)
	}

	rec := storage.Record{Version: version, Key: b.key, Data: json.RawMessage(data)}
	return storage.Resolve(rec, b.version, b.opts)
}

// Save replaces the stored object in one transaction, moving the previous
// value into record_history.
func (b *Backend) Save(ctx context.Context, data map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStorageClosed
	}
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", types.ErrStorage, b.key, err)
	}

	if err := b.saveTx(ctx, string(payload)); err != nil {
		return fmt.Errorf("%w: saving %s: %v", types.ErrStorage, b.key, err)
	}
	b.opts.Log().Debug("saved record",
		slog.String("key", b.key),
		slog.Int("bytes", len(payload)))
	return nil
}

func (b *Backend) saveTx(ctx context.Context, payload string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := b.now().UTC().Format(time.RFC3339Nano)

	if b.historyLimit > 0 {
		var prevVersion int
		var prevData string
		err := tx.QueryRowContext(ctx,
			"SELECT version, data FROM records WHERE key = ?", b.key).Scan(&prevVersion, &prevData)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("reading previous value: %w", err)
		default:
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO record_history (history_id, key, version, data, replaced_at) VALUES (?, ?, ?, ?, ?)",
				newUUID(), b.key, prevVersion, prevData, now); err != nil {
				return fmt.Errorf("recording history: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM record_history WHERE key = ? AND history_id NOT IN (
				    SELECT history_id FROM record_history WHERE key = ? ORDER BY history_id DESC LIMIT ?)`,
				b.key, b.key, b.historyLimit); err != nil {
				return fmt.Errorf("pruning history: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (key, version, minor_version, data, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		     version = excluded.version,
		     minor_version = excluded.minor_version,
		     data = excluded.data,
		     updated_at = excluded.updated_at`,
		b.key, b.version, storage.MinorVersion, payload, now); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	return tx.Commit()
}

// History returns up to limit replaced values for the key, newest first.
// A non-positive limit returns every retained entry.
func (b *Backend) History(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStorageClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT history_id, version, data, replaced_at FROM record_history
		 WHERE key = ? ORDER BY history_id DESC LIMIT ?`, b.key, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying history: %v", types.ErrStorage, err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		var data, replacedAt string
		if err := rows.Scan(&e.HistoryID, &e.Version, &data, &replacedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning history: %v", types.ErrStorage, err)
		}
		e.Key = b.key
		e.Data = storage.Record{Data: json.RawMessage(data)}.Object()
		e.ReplacedAt, err = time.Parse(time.RFC3339Nano, replacedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing replaced_at: %v", types.ErrStorage, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading history: %v", types.ErrStorage, err)
	}
	return entries, nil
}

// Close releases the database connection. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	return nil
}

// newUUID generates a UUID v7 string. v7 ids sort by creation time, which
// History relies on for ordering.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}
