// Package cardconfig stores UI card configurations: a flat table mapping a
// card id to an opaque JSON object, persisted whole through a write-through
// cache.
//
// Configurations are intentionally schema-less. The only checks are that the
// card id is non-empty and the configuration is a JSON object.
package cardconfig

import (
	"context"
	"log/slog"
	"maps"

	"github.com/yinkun-ui/yinkun/internal/writethrough"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// Store provides read and upsert access to the card configuration table.
// It is safe for concurrent use; upserts are serialized so concurrent
// writers never lose each other's entries.
type Store struct {
	cache *writethrough.Cache
	log   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns a Store persisting through storage. The store owns no other
// handle; callers open storage once at startup and pass it here.
func New(storage types.Storage, opts ...Option) *Store {
	s := &Store{
		cache: writethrough.New(storage),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("store", storage.Key()))
	return s
}

// Storage returns the storage handle backing the store.
func (s *Store) Storage() types.Storage {
	return s.cache.Storage()
}

// Init loads the table into memory. Call it once at startup; later reads
// never go back to storage.
func (s *Store) Init(ctx context.Context) error {
	if err := s.cache.Load(ctx); err != nil {
		return err
	}
	table, err := s.Table(ctx)
	if err != nil {
		return err
	}
	s.log.Info("card configs loaded", slog.Int("cards", len(table)))
	return nil
}

// Table returns a deep copy of the whole table, loading it on first use.
func (s *Store) Table(ctx context.Context) (types.CardConfigTable, error) {
	data, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.toTable(data), nil
}

// Get returns a deep copy of the configuration for cardID, or of the whole
// table when cardID is empty. An unknown card id is not an error; its config
// is nil.
func (s *Store) Get(ctx context.Context, cardID string) (types.GetResult, error) {
	if cardID == "" {
		table, err := s.Table(ctx)
		if err != nil {
			return types.GetResult{}, err
		}
		return types.TableResult(table), nil
	}

	data, err := s.cache.Snapshot(ctx)
	if err != nil {
		return types.GetResult{}, err
	}
	return types.SingleResult(cardID, types.CloneValue(data[cardID])), nil
}

// Upsert replaces the configuration for cardID with config. The previous
// configuration for the card, if any, is discarded rather than merged.
// Validation runs before anything is loaded or saved. The write is durable
// when Upsert returns without error.
func (s *Store) Upsert(ctx context.Context, cardID string, config any) (types.UpsertResult, error) {
	if cardID == "" {
		return types.UpsertResult{}, types.NewValidationError(types.MsgCardIDRequired)
	}
	obj, ok := types.AsObject(config)
	if !ok {
		return types.UpsertResult{}, types.NewValidationError(types.MsgConfigObject)
	}

	err := s.cache.Update(ctx, func(current map[string]any) (map[string]any, bool, error) {
		next := maps.Clone(current)
		next[cardID] = types.CloneObject(obj)
		return next, true, nil
	})
	if err != nil {
		s.log.Error("card config save failed",
			slog.String("cardId", cardID),
			slog.Any("error", err))
		return types.UpsertResult{}, err
	}

	s.log.Debug("card config saved", slog.String("cardId", cardID))
	return types.UpsertResult{OK: true, CardID: cardID}, nil
}

// Delete removes the configuration for cardID. It reports whether the card
// existed; deleting an unknown card does not touch storage.
func (s *Store) Delete(ctx context.Context, cardID string) (bool, error) {
	if cardID == "" {
		return false, types.NewValidationError(types.MsgCardIDRequired)
	}

	var existed bool
	err := s.cache.Update(ctx, func(current map[string]any) (map[string]any, bool, error) {
		if _, existed = current[cardID]; !existed {
			return current, false, nil
		}
		next := maps.Clone(current)
		delete(next, cardID)
		return next, true, nil
	})
	if err != nil {
		return false, err
	}
	if existed {
		s.log.Debug("card config deleted", slog.String("cardId", cardID))
	}
	return existed, nil
}

// toTable deep-copies the cached object into a table. Entries that are not
// objects cannot have been written by Upsert; they are returned as stored.
func (s *Store) toTable(data map[string]any) types.CardConfigTable {
	table := make(types.CardConfigTable, len(data))
	for id, v := range data {
		if _, ok := types.AsObject(v); !ok {
			s.log.Debug("non-object card config", slog.String("cardId", id))
		}
		table[id] = types.CloneValue(v)
	}
	return table
}
