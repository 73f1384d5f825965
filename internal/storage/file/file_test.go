package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schnitzelapp/schnitzel/internal/storage"
	"github.com/schnitzelapp/schnitzel/internal/storage/file"
)

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := file.New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(ctx, "players")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put(ctx, "players", []byte(`[{"id":1}]`)))
	data, err := s.Get(ctx, "players")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(data))

	require.NoError(t, s.Put(ctx, "players", []byte(`[]`)))
	data, err = s.Get(ctx, "players")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	require.NoError(t, s.Delete(ctx, "players"))
	_, err = s.Get(ctx, "players")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "players"), "double delete is fine")
}

func TestStore_RejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	s, err := file.New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", "a b"} {
		_, err := s.Get(ctx, key)
		assert.Error(t, err, "key %q", key)
		assert.Error(t, s.Put(ctx, key, []byte("{}")))
	}
}

func TestStore_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := file.New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "saved", []byte("{}")))

	_, err = os.Stat(filepath.Join(dir, "saved.json"))
	assert.NoError(t, err)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := file.New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "history", []byte(`[]`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "history.json", entries[0].Name())
}

func TestGetJSON_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := file.New(t.TempDir())
	require.NoError(t, err)

	type blob struct {
		N int `json:"n"`
	}
	require.NoError(t, storage.PutJSON(ctx, s, "saved", blob{N: 7}))

	var got blob
	found, err := storage.GetJSON(ctx, s, "saved", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7, got.N)

	found, err = storage.GetJSON(ctx, s, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, "saved", []byte("not json")))
	_, err = storage.GetJSON(ctx, s, "saved", &got)
	assert.Error(t, err, "corruption surfaces as an error for the caller to degrade on")
}
