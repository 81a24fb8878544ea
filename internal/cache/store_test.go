package cache

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjhansen/siteloom/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	fs := memfs.New()
	store, err := NewStore(fs, ".cache")
	require.NoError(t, err)
	return store
}

func sampleEntry(key core.ItemKey) *core.CacheEntry {
	return &core.CacheEntry{
		ItemKey:       key,
		OutputsByKey:  map[string][]string{"default": {"out/x.txt"}},
		OutputBaseDir: "out",
		TrackedFiles: map[string]core.TrackedFile{
			"in/x.txt": {Hash: "abc", ModTime: 1, Origin: core.OriginItem},
		},
		UpstreamOutputSignatures: map[string]core.UpstreamOutputSignature{},
		Timestamp:                1000,
	}
}

func TestStoreGetMissReturnsFalse(t *testing.T) {
	store := newTestStore(t)
	_, ok := store.Get("sig-1", "key-1")
	assert.False(t, ok)
}

func TestStoreSetThenGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	entry := sampleEntry("key-1")

	require.NoError(t, store.Set("sig-1", "key-1", entry))

	got, ok := store.Get("sig-1", "key-1")
	require.True(t, ok)
	assert.Equal(t, entry.OutputsByKey, got.OutputsByKey)
	assert.Equal(t, entry.TrackedFiles, got.TrackedFiles)
}

func TestStoreCleanExceptPrunesOrphans(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("sig-1", "keep", sampleEntry("keep")))
	require.NoError(t, store.Set("sig-1", "drop", sampleEntry("drop")))

	require.NoError(t, store.CleanExcept("sig-1", []core.ItemKey{"keep"}))

	_, ok := store.Get("sig-1", "keep")
	assert.True(t, ok)
	_, ok = store.Get("sig-1", "drop")
	assert.False(t, ok)
}

func TestStoreCleanExceptOnMissingDirSucceeds(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.CleanExcept("never-existed", []core.ItemKey{"a"}))
}

func TestStoreClearRemovesSignatureSubtree(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("sig-1", "key-1", sampleEntry("key-1")))
	require.NoError(t, store.Clear("sig-1"))

	_, ok := store.Get("sig-1", "key-1")
	assert.False(t, ok)
}

func TestStoreClearAllRemovesEverySignature(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("sig-1", "key-1", sampleEntry("key-1")))
	require.NoError(t, store.Set("sig-2", "key-1", sampleEntry("key-1")))

	require.NoError(t, store.ClearAll())

	_, ok := store.Get("sig-1", "key-1")
	assert.False(t, ok)
	_, ok = store.Get("sig-2", "key-1")
	assert.False(t, ok)
}

func TestStoreCopyToExpectedPathCreatesParentDirs(t *testing.T) {
	fs := memfs.New()
	store, err := NewStore(fs, ".cache")
	require.NoError(t, err)

	f, err := fs.Create("out/a/x.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.CopyToExpectedPath("out/a/x.txt", "out/b/x.txt"))

	got, err := fs.Open("out/b/x.txt")
	require.NoError(t, err)
	defer got.Close()
	buf := make([]byte, 16)
	n, _ := got.Read(buf)
	assert.Equal(t, "content", string(buf[:n]))
}

func TestSanitizeForDiskSplitsCamelCaseAndBounds(t *testing.T) {
	sanitized := sanitizeForDisk("XSLTTransform-deadbeefcafef00d")
	assert.NotContains(t, sanitized, "/")
	assert.NotContains(t, sanitized, "--")
	assert.Equal(t, strings.ToLower(sanitized), sanitized)
	assert.True(t, strings.HasPrefix(sanitized, "xslt-transform-"))
	assert.LessOrEqual(t, len(sanitizeForDisk(strings.Repeat("a", 300))), 150)
}
