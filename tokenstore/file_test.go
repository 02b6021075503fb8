package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStoreTest(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "tokens.bin"), testSealer(t))
	require.NoError(t, err)
	return store
}

func TestFileStoreSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := newFileStoreTest(t)

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	p := testPair()
	require.NoError(t, store.Save(ctx, p))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.RefreshToken, got.RefreshToken)

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), p.RefreshToken)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(store.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clear on empty store must succeed")

	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreRejectsPartialPair(t *testing.T) {
	store := newFileStoreTest(t)
	p := testPair()
	p.RefreshToken = ""
	require.ErrorIs(t, store.Save(context.Background(), p), ErrPartialPair)

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreRejectsOpenPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix permissions only")
	}
	ctx := context.Background()
	store := newFileStoreTest(t)
	require.NoError(t, store.Save(ctx, testPair()))
	require.NoError(t, os.Chmod(store.Path(), 0o644))

	_, _, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrInsecurePermissions)
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	store := newFileStoreTest(t)
	require.NoError(t, store.Save(ctx, testPair()))
	require.NoError(t, os.WriteFile(store.Path(), []byte("garbage"), 0o600))

	_, _, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestNewFileStoreRequiresSealer(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "t"), nil)
	require.ErrorIs(t, err, ErrSealerRequired)
}
