package types

import (
	"context"
	"errors"
	"time"
)

// Storage is a versioned key-value persistence primitive. Each Storage
// instance owns exactly one key and persists a single JSON object under it,
// wrapped in a record envelope carrying the schema version.
type Storage interface {
	// Key returns the storage key this handle reads and writes.
	Key() string

	// Version returns the schema version written with every Save.
	Version() int

	// Load returns the persisted data. It returns (nil, nil) when nothing has
	// been stored yet or the stored payload is not a JSON object.
	// Returns ErrUnsupportedVersion if the stored record has a different
	// major version and no migration is registered.
	Load(ctx context.Context) (map[string]any, error)

	// Save atomically replaces the persisted data with data.
	Save(ctx context.Context, data map[string]any) error

	// Close releases backend resources. Close is idempotent.
	Close() error
}

// MigrateFunc converts data stored under oldVersion to the current version.
type MigrateFunc func(oldVersion int, data map[string]any) (map[string]any, error)

// Storage errors.
var (
	ErrStorage            = errors.New("storage failure")
	ErrUnsupportedVersion = errors.New("unsupported storage version")
	ErrStorageClosed      = errors.New("storage is closed")
	ErrInvalidKey         = errors.New("invalid storage key")
)

// HistoryEntry is a previously stored value of a key, kept by backends that
// implement Historian.
type HistoryEntry struct {
	HistoryID  string         `json:"history_id"`
	Key        string         `json:"key"`
	Version    int            `json:"version"`
	Data       map[string]any `json:"data"`
	ReplacedAt time.Time      `json:"replaced_at"`
}

// Historian is implemented by storage backends that retain replaced values.
type Historian interface {
	// History returns up to limit replaced values, newest first.
	History(ctx context.Context, limit int) ([]HistoryEntry, error)
}
