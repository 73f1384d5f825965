package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schnitzelapp/schnitzel/internal/storage"
	pgstore "github.com/schnitzelapp/schnitzel/internal/storage/postgres"
	"github.com/schnitzelapp/schnitzel/internal/testutil"
)

func testStore(t *testing.T) *pgstore.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pgstore.NewStore(pc.RawPool)
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	_, err := s.Get(ctx, storage.KeyPlayers)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put(ctx, storage.KeyPlayers, []byte(`[{"id":1,"name":"Ana"}]`)))
	data, err := s.Get(ctx, storage.KeyPlayers)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"name":"Ana"}]`, string(data))

	// Upsert replaces the previous blob.
	require.NoError(t, s.Put(ctx, storage.KeyPlayers, []byte(`[]`)))
	data, err = s.Get(ctx, storage.KeyPlayers)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	require.NoError(t, s.Delete(ctx, storage.KeyPlayers))
	_, err = s.Get(ctx, storage.KeyPlayers)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Delete(ctx, storage.KeyPlayers), "deleting an absent key is fine")
}

func TestStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Put(ctx, storage.KeyHistory, []byte(`[{"id":1}]`)))
	require.NoError(t, s.Put(ctx, storage.KeySaved, []byte(`{"cur":0}`)))

	require.NoError(t, s.Delete(ctx, storage.KeySaved))
	data, err := s.Get(ctx, storage.KeyHistory)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(data))
}
