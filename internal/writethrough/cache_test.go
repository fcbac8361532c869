package writethrough

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinkun-ui/yinkun/internal/storagetest"
)

func setKey(key string, value any) UpdateFunc {
	return func(current map[string]any) (map[string]any, bool, error) {
		next := maps.Clone(current)
		next[key] = value
		return next, true, nil
	}
}

func TestSnapshotLoadsOnce(t *testing.T) {
	fake := storagetest.New("k", map[string]any{"a": "1"})
	c := New(fake)
	ctx := context.Background()

	assert.False(t, c.Loaded())
	for i := 0; i < 3; i++ {
		got, err := c.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": "1"}, got)
	}
	assert.True(t, c.Loaded())
	assert.Equal(t, 1, fake.Loads())
}

func TestSnapshotAbsentDataIsEmpty(t *testing.T) {
	c := New(storagetest.New("k", nil))
	got, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)
}

func TestLoadErrorIsNotCached(t *testing.T) {
	fake := storagetest.New("k", map[string]any{"a": "1"})
	fake.FailLoad(errors.New("disk gone"))
	c := New(fake)
	ctx := context.Background()

	require.ErrorContains(t, c.Load(ctx), "disk gone")
	assert.False(t, c.Loaded())

	fake.FailLoad(nil)
	require.NoError(t, c.Load(ctx))
	assert.True(t, c.Loaded())
}

func TestUpdatePersistsBeforeVisible(t *testing.T) {
	fake := storagetest.New("k", nil)
	c := New(fake)
	ctx := context.Background()

	require.NoError(t, c.Update(ctx, setKey("a", "x")))
	assert.Equal(t, map[string]any{"a": "x"}, fake.Data())
	got, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "x"}, got)
}

func TestUpdateFailedSaveKeepsPreviousValue(t *testing.T) {
	fake := storagetest.New("k", map[string]any{"a": "old"})
	c := New(fake)
	ctx := context.Background()

	fake.FailSave(errors.New("write failed"))
	err := c.Update(ctx, setKey("a", "new"))
	require.ErrorContains(t, err, "write failed")

	got, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "old"}, got)
	assert.Equal(t, map[string]any{"a": "old"}, fake.Data())
}

func TestUpdateUnchangedSkipsSave(t *testing.T) {
	fake := storagetest.New("k", nil)
	c := New(fake)

	err := c.Update(context.Background(), func(current map[string]any) (map[string]any, bool, error) {
		return current, false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.Saves())
}

func TestUpdateFuncError(t *testing.T) {
	fake := storagetest.New("k", nil)
	c := New(fake)
	boom := errors.New("boom")

	err := c.Update(context.Background(), func(map[string]any) (map[string]any, bool, error) {
		return nil, false, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, fake.Saves())
}

func TestConcurrentUpdatesDoNotLoseKeys(t *testing.T) {
	fake := storagetest.New("k", nil)
	c := New(fake)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Update(ctx, setKey(fmt.Sprintf("k%d", i), float64(i))))
		}(i)
	}
	wg.Wait()

	got, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, got, n)
	assert.Len(t, fake.Data(), n)
}
