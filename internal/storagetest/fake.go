// Package storagetest provides an in-memory types.Storage with failure
// injection for tests.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/yinkun-ui/yinkun/pkg/types"
)

// Fake is an in-memory types.Storage. Stored data is deep-copied through
// JSON on every Load and Save, matching what a real backend returns.
type Fake struct {
	mu       sync.Mutex
	key      string
	version  int
	data     map[string]any
	loadErr  error
	saveErr  error
	saveHook func()
	loads    int
	saves    int
	closed   bool
}

// New returns a Fake holding data under key. A nil data means nothing is
// stored.
func New(key string, data map[string]any) *Fake {
	return &Fake{key: key, version: 1, data: clone(data)}
}

// Key returns the storage key.
func (f *Fake) Key() string { return f.key }

// Version returns 1.
func (f *Fake) Version() int { return f.version }

// Load returns a copy of the stored data.
func (f *Fake) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.closed {
		return nil, types.ErrStorageClosed
	}
	if f.loadErr != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, f.loadErr)
	}
	return clone(f.data), nil
}

// Save stores a copy of data unless a save failure is injected.
func (f *Fake) Save(ctx context.Context, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	hook := f.saveHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.closed {
		return types.ErrStorageClosed
	}
	if f.saveErr != nil {
		return fmt.Errorf("%w: %w", types.ErrStorage, f.saveErr)
	}
	f.data = clone(data)
	if f.data == nil {
		f.data = map[string]any{}
	}
	return nil
}

// Close marks the fake closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// FailLoad makes subsequent loads fail with err. A nil err clears it.
func (f *Fake) FailLoad(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

// FailSave makes subsequent saves fail with err. A nil err clears it.
func (f *Fake) FailSave(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

// OnSave registers fn to run at the start of every Save, outside the lock.
func (f *Fake) OnSave(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveHook = fn
}

// Data returns a copy of the stored data.
func (f *Fake) Data() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.data)
}

// Loads returns the number of Load calls.
func (f *Fake) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// Saves returns the number of Save calls, failed ones included.
func (f *Fake) Saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func clone(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		panic(fmt.Sprintf("storagetest: data is not JSON-serializable: %v", err))
	}
	var out map[string]any
	if err := types.UnmarshalJSON(raw, &out); err != nil {
		panic(fmt.Sprintf("storagetest: %v", err))
	}
	return out
}
