package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/yinkun-ui/yinkun/internal/backend"
	"github.com/yinkun-ui/yinkun/internal/blobstore"
	"github.com/yinkun-ui/yinkun/internal/cardconfig"
	"github.com/yinkun-ui/yinkun/internal/storage"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// stores bundles the opened stores and their storage handles.
type stores struct {
	cards     *cardconfig.Store
	dashboard *blobstore.Store
	handles   []types.Storage
}

// openStores opens storage for the card table and the dashboard document
// and loads both.
func openStores(ctx context.Context, cfg types.Config, log *slog.Logger) (*stores, error) {
	s := &stores{}

	cardStorage, err := backend.Open(cfg, types.CardConfigStoreKey, types.CardConfigStoreVersion, storage.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open card storage: %w", err)
	}
	s.handles = append(s.handles, cardStorage)

	dashStorage, err := backend.Open(cfg, blobstore.StoreKey, blobstore.StoreVersion, storage.WithLogger(log))
	if err != nil {
		return nil, multierror.Append(fmt.Errorf("open dashboard storage: %w", err), s.Close())
	}
	s.handles = append(s.handles, dashStorage)

	s.cards = cardconfig.New(cardStorage, cardconfig.WithLogger(log))
	s.dashboard = blobstore.New(dashStorage, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.cards.Init(gctx) })
	g.Go(func() error { return s.dashboard.Init(gctx) })
	if err := g.Wait(); err != nil {
		return nil, multierror.Append(err, s.Close())
	}
	return s, nil
}

// openCardStorage opens only the card table storage, for offline commands.
func openCardStorage(cfg types.Config, log *slog.Logger) (*cardconfig.Store, types.Storage, error) {
	st, err := backend.Open(cfg, types.CardConfigStoreKey, types.CardConfigStoreVersion, storage.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	return cardconfig.New(st, cardconfig.WithLogger(log)), st, nil
}

// Close closes every storage handle and reports all failures.
func (s *stores) Close() error {
	var result *multierror.Error
	for _, h := range s.handles {
		if err := h.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", h.Key(), err))
		}
	}
	return result.ErrorOrNil()
}
