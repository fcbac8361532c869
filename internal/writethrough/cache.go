// Package writethrough keeps a whole JSON object in memory in front of a
// types.Storage. Reads are served from memory after the first load; every
// update persists the full object before it becomes visible to readers.
package writethrough

import (
	"context"
	"fmt"
	"sync"

	"github.com/yinkun-ui/yinkun/pkg/types"
)

// UpdateFunc derives the next object from the current one. It must not
// modify current. Returning changed=false skips the save.
type UpdateFunc func(current map[string]any) (next map[string]any, changed bool, err error)

// Cache is a write-through cache over a single storage key.
type Cache struct {
	storage types.Storage

	// writeMu serializes load-mutate-save cycles.
	writeMu sync.Mutex

	mu     sync.RWMutex
	data   map[string]any
	loaded bool
}

// New returns a Cache over s. Nothing is loaded until Load or Snapshot.
func New(s types.Storage) *Cache {
	return &Cache{storage: s}
}

// Storage returns the storage handle backing the cache.
func (c *Cache) Storage() types.Storage {
	return c.storage
}

// Loaded reports whether the object has been read from storage.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Load reads the object from storage unless it is already cached.
func (c *Cache) Load(ctx context.Context) error {
	_, err := c.Snapshot(ctx)
	return err
}

// Snapshot returns the cached object, loading it on first use. Absent or
// non-object data yields an empty object. Callers must not modify the
// returned map.
func (c *Cache) Snapshot(ctx context.Context) (map[string]any, error) {
	c.mu.RLock()
	if c.loaded {
		data := c.data
		c.mu.RUnlock()
		return data, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.data, nil
	}

	data, err := c.storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.storage.Key(), err)
	}
	if data == nil {
		data = map[string]any{}
	}
	c.data = data
	c.loaded = true
	return c.data, nil
}

// Update runs fn against the current object and persists the result. The
// new object replaces the cached one only after Save succeeds, so a failed
// save leaves readers on the last durable value.
func (c *Cache) Update(ctx context.Context, fn UpdateFunc) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	current, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}

	next, changed, err := fn(current)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if next == nil {
		next = map[string]any{}
	}

	if err := c.storage.Save(ctx, next); err != nil {
		return fmt.Errorf("save %s: %w", c.storage.Key(), err)
	}

	c.mu.Lock()
	c.data = next
	c.mu.Unlock()
	return nil
}
