// Package blobstore persists the dashboard settings document served at
// /api/storage. The document is an arbitrary JSON object replaced whole on
// every write.
package blobstore

import (
	"context"
	"log/slog"

	"github.com/yinkun-ui/yinkun/internal/writethrough"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// Storage identity of the dashboard document.
const (
	StoreKey     = "yinkun_ui_dashboard"
	StoreVersion = 1
)

// Store holds the dashboard document.
type Store struct {
	cache *writethrough.Cache
	log   *slog.Logger
}

// New returns a Store persisting through storage.
func New(storage types.Storage, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		cache: writethrough.New(storage),
		log:   log.With(slog.String("store", storage.Key())),
	}
}

// Init loads the document into memory.
func (s *Store) Init(ctx context.Context) error {
	return s.cache.Load(ctx)
}

// Get returns a deep copy of the document. Nothing stored yields an empty object.
func (s *Store) Get(ctx context.Context) (map[string]any, error) {
	doc, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return types.CloneObject(doc), nil
}

// Replace validates that doc is a JSON object and stores it, replacing the
// previous document.
func (s *Store) Replace(ctx context.Context, doc any) error {
	obj, ok := types.AsObject(doc)
	if !ok {
		return types.NewValidationError(types.MsgBodyObject)
	}
	err := s.cache.Update(ctx, func(map[string]any) (map[string]any, bool, error) {
		return types.CloneObject(obj), true, nil
	})
	if err != nil {
		s.log.Error("dashboard save failed", slog.Any("error", err))
		return err
	}
	s.log.Debug("dashboard saved", slog.Int("keys", len(obj)))
	return nil
}
