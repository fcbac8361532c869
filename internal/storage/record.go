// Package storage implements the versioned record envelope shared by all
// storage backends, along with backend options.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/yinkun-ui/yinkun/pkg/types"
)

// MinorVersion is written with every record. Readers ignore it.
const MinorVersion = 1

// Record is the on-disk envelope around a stored JSON object.
type Record struct {
	Version      int             `json:"version"`
	MinorVersion int             `json:"minor_version"`
	Key          string          `json:"key"`
	Data         json.RawMessage `json:"data"`
}

// keyPattern restricts keys to names that are safe as file names.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateKey returns ErrInvalidKey unless key is a safe storage key.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	return nil
}

// Encode wraps data in a record envelope and returns its JSON encoding.
// A nil map is stored as an empty object.
func Encode(key string, version int, data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s data: %w", key, err)
	}
	rec := Record{
		Version:      version,
		MinorVersion: MinorVersion,
		Key:          key,
		Data:         payload,
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", key, err)
	}
	return out, nil
}

// Decode parses a record envelope.
func Decode(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}
	return rec, nil
}

// Object returns the record payload when it is a JSON object, nil otherwise.
func (r Record) Object() map[string]any {
	trimmed := bytes.TrimSpace(r.Data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var obj map[string]any
	if err := types.UnmarshalJSON(trimmed, &obj); err != nil {
		return nil
	}
	return obj
}

// Resolve returns the payload of rec for a reader expecting version want.
// Records with a different version go through opts.Migrate; without one
// Resolve fails with ErrUnsupportedVersion.
func Resolve(rec Record, want int, opts Options) (map[string]any, error) {
	data := rec.Object()
	if rec.Version == want {
		return data, nil
	}
	if opts.Migrate == nil {
		return nil, fmt.Errorf("%w: %s stored as version %d, expected %d",
			types.ErrUnsupportedVersion, rec.Key, rec.Version, want)
	}
	migrated, err := opts.Migrate(rec.Version, data)
	if err != nil {
		return nil, fmt.Errorf("migrating %s from version %d: %w", rec.Key, rec.Version, err)
	}
	opts.Log().Info("migrated stored record",
		slog.String("key", rec.Key),
		slog.Int("from", rec.Version),
		slog.Int("to", want))
	return migrated, nil
}

// Options configures a storage backend.
type Options struct {
	Migrate types.MigrateFunc
	Logger  *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithMigrate registers a migration for records stored under another version.
func WithMigrate(f types.MigrateFunc) Option {
	return func(o *Options) { o.Migrate = f }
}

// WithLogger sets the logger used by the backend.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Apply builds Options from opts.
func Apply(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Log returns the configured logger or slog.Default.
func (o Options) Log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
