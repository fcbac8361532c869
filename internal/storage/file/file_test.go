package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinkun-ui/yinkun/internal/storage"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

func newStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := New(dir, types.CardConfigStoreKey, types.CardConfigStoreVersion)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewCreatesStorageDir(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)

	info, err := os.Stat(filepath.Join(dir, DirName))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(dir, DirName, types.CardConfigStoreKey), s.Path())
	assert.Equal(t, types.CardConfigStoreKey, s.Key())
	assert.Equal(t, 1, s.Version())
}

func TestNewRejectsUnsafeKey(t *testing.T) {
	_, err := New(t.TempDir(), "../escape", 1)
	require.ErrorIs(t, err, types.ErrInvalidKey)
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	s := newStore(t, t.TempDir())

	data, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := newStore(t, dir)

	want := map[string]any{
		"card1": map[string]any{"theme": "dark", "entities": []any{"light.kitchen"}},
	}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A fresh handle on the same directory sees the saved data.
	reopened := newStore(t, dir)
	got, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLargeIntegersSurviveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := newStore(t, dir)

	want := map[string]any{
		"card1": map[string]any{
			"entityId": json.Number("12345678901234567891"),
			"x":        json.Number("9007199254740993"),
		},
	}
	require.NoError(t, s.Save(ctx, want))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "12345678901234567891")

	got, err := newStore(t, dir).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveWritesEnvelope(t *testing.T) {
	s := newStore(t, t.TempDir())
	require.NoError(t, s.Save(context.Background(), map[string]any{"a": map[string]any{}}))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"version": 1,
		"minor_version": 1,
		"key": "yinkun_ui_card_config",
		"data": {"a": {}}
	}`, string(raw))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(context.Background(), map[string]any{"n": float64(i)}))
	}

	entries, err := os.ReadDir(filepath.Join(dir, DirName))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.CardConfigStoreKey, entries[0].Name())
}

func TestLoadNonObjectPayloadReturnsNil(t *testing.T) {
	s := newStore(t, t.TempDir())
	record := `{"version":1,"minor_version":1,"key":"yinkun_ui_card_config","data":["x"]}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(record), 0o644))

	data, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestLoadCorruptFileIsStorageError(t *testing.T) {
	s := newStore(t, t.TempDir())
	require.NoError(t, os.WriteFile(s.Path(), []byte("{corrupt"), 0o644))

	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, types.ErrStorage)
}

func TestLoadVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)
	record := `{"version":2,"minor_version":1,"key":"yinkun_ui_card_config","data":{}}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(record), 0o644))

	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, types.ErrUnsupportedVersion)

	migrating, err := New(dir, types.CardConfigStoreKey, 1, storage.WithMigrate(
		func(old int, data map[string]any) (map[string]any, error) { return data, nil }))
	require.NoError(t, err)
	data, err := migrating.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, data)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s := newStore(t, t.TempDir())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, types.ErrStorageClosed)
	assert.ErrorIs(t, s.Save(context.Background(), nil), types.ErrStorageClosed)
}

func TestCanceledContext(t *testing.T) {
	s := newStore(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.ErrorIs(t, err, context.Canceled)

	err = s.Save(ctx, map[string]any{})
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveFailureIsStorageError(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, DirName)))

	err := s.Save(context.Background(), map[string]any{"a": 1.0})
	require.ErrorIs(t, err, types.ErrStorage)
}
