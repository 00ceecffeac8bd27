package tessdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobSHA(t *testing.T) {
	// git hash-object of "hello world\n".
	const want = "3b18e512dba79e4c8300dd08aeb37f8e728b8dad"

	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("hello world\n"), 0o644))

	got, err := blobSHA(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCacheLanguages(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "tessdata"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cache.Path("eng"), []byte("eng model"), 0o644))
	require.NoError(t, os.WriteFile(cache.Path("deu"), []byte("deu model"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cache.Dir(), "index.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cache.Dir(), "notes.txt"), []byte("x"), 0o644))

	langs, err := cache.Languages()
	require.NoError(t, err)
	assert.Equal(t, []string{"deu", "eng"}, langs)

	assert.True(t, cache.Has("eng"))
	assert.False(t, cache.Has("fra"))
}

func TestCacheVerify(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cache.Path("eng"), []byte("hello world\n"), 0o644))

	ok, err := cache.Verify("eng", "3b18e512dba79e4c8300dd08aeb37f8e728b8dad")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Verify("eng", "0000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = cache.Verify("missing", "3b18e512dba79e4c8300dd08aeb37f8e728b8dad")
	assert.Error(t, err)
}

func TestCacheRemove(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cache.Path("eng"), []byte("x"), 0o644))

	require.NoError(t, cache.Remove("eng"))
	assert.False(t, cache.Has("eng"))
	assert.Error(t, cache.Remove("eng"))
}
