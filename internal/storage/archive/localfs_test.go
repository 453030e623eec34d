// internal/storage/archive/localfs_test.go
package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte(`{"symbol":"AAPL"}`)

	require.NoError(t, fs.Write(ctx, "bars/yahoo/AAPL/1d/a.json", data))

	got, err := fs.Read(ctx, "bars/yahoo/AAPL/1d/a.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalFS_Overwrite(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "k.json", []byte("old")))
	require.NoError(t, fs.Write(ctx, "k.json", []byte("new")))

	got, err := fs.Read(ctx, "k.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestLocalFS_Exists(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "nonexistent.json")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.Write(ctx, "exists.json", []byte("data")))
	exists, err = fs.Exists(ctx, "exists.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalFS_List(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Write(ctx, "bars/yahoo/AAPL/a.json", []byte("a"))
	fs.Write(ctx, "bars/yahoo/AAPL/b.json", []byte("b"))
	fs.Write(ctx, "bars/yahoo/MSFT/c.json", []byte("c"))

	paths, err := fs.List(ctx, "bars/yahoo/AAPL")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bars/yahoo/AAPL/a.json", "bars/yahoo/AAPL/b.json"}, paths)

	paths, err = fs.List(ctx, "bars/none")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalFS_Delete(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Write(ctx, "delete.json", []byte("data"))
	require.NoError(t, fs.Delete(ctx, "delete.json"))

	exists, _ := fs.Exists(ctx, "delete.json")
	assert.False(t, exists, "file should be deleted")
}

func TestLocalFS_RejectsEscape(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())

	err := fs.Write(context.Background(), "../outside.json", []byte("x"))
	assert.Error(t, err)
}

func TestLocalFS_CancelledContext(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, fs.Write(ctx, "a.json", []byte("x")), context.Canceled)
	_, err := fs.Read(ctx, "a.json")
	assert.ErrorIs(t, err, context.Canceled)
}
