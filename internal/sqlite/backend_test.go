package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinkun-ui/yinkun/internal/storage"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

func openBackend(t *testing.T, dir, key string, opts ...storage.Option) *Backend {
	t.Helper()
	b, err := Open(dir, key, 1, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b := openBackend(t, dir, types.CardConfigStoreKey)

	_, err := os.Stat(filepath.Join(dir, DBFileName))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DBFileName), b.Path())
	assert.Equal(t, types.CardConfigStoreKey, b.Key())
	assert.Equal(t, 1, b.Version())
}

func TestOpenRejectsUnsafeKey(t *testing.T) {
	_, err := Open(t.TempDir(), "a/b", 1)
	require.ErrorIs(t, err, types.ErrInvalidKey)
}

func TestLoadEmpty(t *testing.T) {
	b := openBackend(t, t.TempDir(), types.CardConfigStoreKey)

	data, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	b := openBackend(t, dir, types.CardConfigStoreKey)

	want := map[string]any{"card1": map[string]any{"theme": "dark"}}
	require.NoError(t, b.Save(ctx, want))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, b.Close())
	reopened := openBackend(t, dir, types.CardConfigStoreKey)
	got, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLargeIntegersSurviveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	b := openBackend(t, dir, types.CardConfigStoreKey)

	want := map[string]any{
		"card1": map[string]any{
			"entityId": json.Number("12345678901234567891"),
			"x":        json.Number("9007199254740993"),
		},
	}
	require.NoError(t, b.Save(ctx, want))
	require.NoError(t, b.Close())

	got, err := openBackend(t, dir, types.CardConfigStoreKey).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestKeysAreIsolated(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cards := openBackend(t, dir, types.CardConfigStoreKey)
	dash := openBackend(t, dir, "yinkun_ui_dashboard")

	require.NoError(t, cards.Save(ctx, map[string]any{"card1": map[string]any{}}))
	require.NoError(t, dash.Save(ctx, map[string]any{"rooms": []any{"kitchen"}}))

	got, err := cards.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"card1": map[string]any{}}, got)

	got, err = dash.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"rooms": []any{"kitchen"}}, got)
}

func TestHistoryRecordsReplacedValues(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t, t.TempDir(), types.CardConfigStoreKey)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b.now = func() time.Time { return base }

	require.NoError(t, b.Save(ctx, map[string]any{"v": float64(1)}))
	require.NoError(t, b.Save(ctx, map[string]any{"v": float64(2)}))
	require.NoError(t, b.Save(ctx, map[string]any{"v": float64(3)}))

	entries, err := b.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"v": json.Number("2")}, entries[0].Data)
	assert.Equal(t, map[string]any{"v": json.Number("1")}, entries[1].Data)
	assert.Equal(t, types.CardConfigStoreKey, entries[0].Key)
	assert.Equal(t, 1, entries[0].Version)
	assert.True(t, entries[0].ReplacedAt.Equal(base))

	limited, err := b.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, entries[0].HistoryID, limited[0].HistoryID)
}

func TestHistoryIsPruned(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t, t.TempDir(), types.CardConfigStoreKey)
	b.SetHistoryLimit(2)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Save(ctx, map[string]any{"v": float64(i)}))
	}

	entries, err := b.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"v": json.Number("3")}, entries[0].Data)
	assert.Equal(t, map[string]any{"v": json.Number("2")}, entries[1].Data)
}

func TestHistoryDisabled(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t, t.TempDir(), types.CardConfigStoreKey)
	b.SetHistoryLimit(0)

	require.NoError(t, b.Save(ctx, map[string]any{"v": float64(1)}))
	require.NoError(t, b.Save(ctx, map[string]any{"v": float64(2)}))

	entries, err := b.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	v2, err := Open(dir, types.CardConfigStoreKey, 2)
	require.NoError(t, err)
	require.NoError(t, v2.Save(ctx, map[string]any{"a": map[string]any{}}))
	require.NoError(t, v2.Close())

	v1 := openBackend(t, dir, types.CardConfigStoreKey)
	_, err = v1.Load(ctx)
	require.ErrorIs(t, err, types.ErrUnsupportedVersion)
}

func TestClosedBackend(t *testing.T) {
	b, err := Open(t.TempDir(), types.CardConfigStoreKey, 1)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	ctx := context.Background()
	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, types.ErrStorageClosed)
	assert.ErrorIs(t, b.Save(ctx, nil), types.ErrStorageClosed)
	_, err = b.History(ctx, 0)
	assert.ErrorIs(t, err, types.ErrStorageClosed)
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t, t.TempDir(), types.CardConfigStoreKey)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, b.Save(ctx, map[string]any{"n": float64(i)}))
		}(i)
	}
	wg.Wait()

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, got, "n")
}

func TestBackendImplementsInterfaces(t *testing.T) {
	var _ types.Storage = (*Backend)(nil)
	var _ types.Historian = (*Backend)(nil)
}
