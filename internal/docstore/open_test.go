package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screentime/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	store, closeFn, err := Open(context.Background(), &config.Config{StoreBackend: "memory"})
	require.NoError(t, err)
	defer closeFn()

	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), &config.Config{StoreBackend: "tape"})
	assert.Error(t, err)
}

func TestOpen_FirestoreNeedsProject(t *testing.T) {
	_, _, err := Open(context.Background(), &config.Config{StoreBackend: "firestore"})
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite store in short mode")
	}

	cfg := &config.Config{
		StoreBackend:   "sql",
		DatabaseType:   "sqlite",
		DatabasePath:   filepath.Join(t.TempDir(), "open.db"),
		MigrationsPath: "../../migrations",
	}
	store, closeFn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "users/u1", Document{"familyId": "ABC123"}, false))
	snap, err := store.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", snap.Data["familyId"])
}
