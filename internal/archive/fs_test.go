package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymiyake/reviewharvest/internal/archive"
)

func TestNewFS(t *testing.T) {
	t.Run("CreatesMissingRoot", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "archive")
		arc, err := archive.NewFS(root)
		require.NoError(t, err)
		assert.Equal(t, root, arc.Root())

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("EmptyRoot", func(t *testing.T) {
		_, err := archive.NewFS("  ")
		assert.Error(t, err)
	})

	t.Run("RootIsAFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := archive.NewFS(file)
		assert.Error(t, err)
	})
}

func TestFSRoundTrip(t *testing.T) {
	ctx := context.Background()
	arc, err := archive.NewFS(t.TempDir())
	require.NoError(t, err)

	ok, err := arc.Contains(ctx, "tokyo/12345.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, arc.Put(ctx, "tokyo/12345.txt", []byte("<html>raw</html>")))

	ok, err = arc.Contains(ctx, "tokyo/12345.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := arc.Get(ctx, "tokyo/12345.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>raw</html>"), data)
}

func TestFSGetMissing(t *testing.T) {
	arc, err := archive.NewFS(t.TempDir())
	require.NoError(t, err)

	_, err = arc.Get(context.Background(), "absent.json")
	assert.ErrorIs(t, err, archive.ErrNotFound)
}

func TestFSRejectsEscapingKeys(t *testing.T) {
	arc, err := archive.NewFS(t.TempDir())
	require.NoError(t, err)

	err = arc.Put(context.Background(), "../outside.txt", []byte("x"))
	assert.Error(t, err)

	_, err = arc.Get(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestFSKeys(t *testing.T) {
	ctx := context.Background()
	arc, err := archive.NewFS(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, arc.Put(ctx, "b/2.txt", []byte("two")))
	require.NoError(t, arc.Put(ctx, "a/1.txt", []byte("one")))
	require.NoError(t, arc.Put(ctx, "a/3.txt", []byte("three")))

	keys, err := arc.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1.txt", "a/3.txt", "b/2.txt"}, keys)
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	arc := archive.NewMemory()

	ok, err := arc.Contains(ctx, "k.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, arc.Put(ctx, "k.json", []byte(`{"a":1}`)))

	data, err := arc.Get(ctx, "k.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	_, err = arc.Get(ctx, "missing")
	assert.ErrorIs(t, err, archive.ErrNotFound)

	keys, err := arc.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k.json"}, keys)
}
