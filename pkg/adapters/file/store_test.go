package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/conduit/pkg/adapters/file"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ListIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewSession("b")))
	require.NoError(t, store.Save(ctx, domain.NewSession("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-a-123.json"), []byte("{}"), 0o644))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sessions)
}

func TestFileStore_TmpPrefixedID(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	session := domain.NewSession("tmp-x")
	session.Context["k"] = "v"
	require.NoError(t, store.Save(ctx, session))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp-x"}, sessions)

	loaded, err := store.Load(ctx, "tmp-x")
	require.NoError(t, err)
	assert.Equal(t, "v", loaded.Context["k"])
}

func TestFileStore_MissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "not-yet"))

	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.NoError(t, store.Delete(context.Background(), "ghost"))
}

func TestFileStore_RejectsPathLikeIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		assert.ErrorIs(t, store.Save(ctx, domain.NewSession(id)), file.ErrInvalidSessionID, id)
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, file.ErrInvalidSessionID, id)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))

	_, err := file.New(dir).Load(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
