package node

import (
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjhansen/siteloom/internal/cache"
	"github.com/kjhansen/siteloom/internal/core"
	"github.com/kjhansen/siteloom/internal/hash"
	"github.com/kjhansen/siteloom/internal/resolve"
)

type stubNode struct {
	Base
	name   string
	items  core.Input
	config map[string]core.Value
}

func (n *stubNode) Name() string                         { return n.name }
func (n *stubNode) Items() core.Input                    { return n.items }
func (n *stubNode) Config() map[string]core.Value        { return n.config }
func (n *stubNode) OutputConfig() map[string]interface{} { return nil }
func (n *stubNode) ExplicitDependencies() []string       { return nil }
func (n *stubNode) Run(ctx *core.Context) ([]core.NodeOutput, error) { return nil, nil }

func mustWrite(t *testing.T, fs billy.Filesystem, p, content string) {
	t.Helper()
	f, err := fs.Create(p)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func newTestContext(t *testing.T, fs billy.Filesystem, buildDir string) (*core.Context, *cache.Store) {
	t.Helper()
	store, err := cache.NewStore(fs, ".cache")
	require.NoError(t, err)

	var nodeOutputs func(string) ([]core.NodeOutput, bool)
	resolver := func(in core.Input) ([]string, error) {
		return resolve.Resolve(fs, buildDir, in, resolve.NodeOutputs(nodeOutputs))
	}
	nodeOutputs = func(string) ([]core.NodeOutput, bool) { return nil, false }

	ctx := core.NewContext(buildDir, store, nil, fs, resolver, nodeOutputs)
	return ctx, store
}

func TestWithCacheComputesOnFirstRunAndCachesOnSecond(t *testing.T) {
	fs := memfs.New()
	mustWrite(t, fs, "content/a.xml", "hello")
	ctx, _ := newTestContext(t, fs, "build")

	n := &stubNode{name: "copy", items: core.GlobInput("content/*.xml")}

	performed := 0
	cb := Callbacks{
		CacheKey:   func(item string) core.ItemKey { return hash.ItemKey(item) },
		OutputPath: func(item string) string { return "build/copy/a.xml" },
		PerformWork: func(item, outputPath string) (WorkResult, error) {
			performed++
			mustWrite(t, fs, outputPath, "hello")
			return WorkResult{}, nil
		},
	}

	results, err := n.WithCache(ctx, n, []string{"content/a.xml"}, cb)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Cached)
	assert.Equal(t, 1, performed)

	results2, err := n.WithCache(ctx, n, []string{"content/a.xml"}, cb)
	require.NoError(t, err)
	require.Len(t, results2, 1)
	assert.True(t, results2[0].Cached)
	assert.Equal(t, 1, performed, "perform_work must not run again on a cache hit")
}

func TestWithCacheRecomputesWhenItemContentChanges(t *testing.T) {
	fs := memfs.New()
	mustWrite(t, fs, "content/a.xml", "hello")
	ctx, _ := newTestContext(t, fs, "build")

	n := &stubNode{name: "copy", items: core.GlobInput("content/*.xml")}
	performed := 0
	cb := Callbacks{
		CacheKey:   func(item string) core.ItemKey { return hash.ItemKey(item) },
		OutputPath: func(item string) string { return "build/copy/a.xml" },
		PerformWork: func(item, outputPath string) (WorkResult, error) {
			performed++
			mustWrite(t, fs, outputPath, "hello")
			return WorkResult{}, nil
		},
	}

	_, err := n.WithCache(ctx, n, []string{"content/a.xml"}, cb)
	require.NoError(t, err)

	mustWrite(t, fs, "content/a.xml", "changed")
	results, err := n.WithCache(ctx, n, []string{"content/a.xml"}, cb)
	require.NoError(t, err)
	assert.False(t, results[0].Cached)
	assert.Equal(t, 2, performed)
}

func TestWithCachePrunesStaleItemsViaCleanExcept(t *testing.T) {
	fs := memfs.New()
	mustWrite(t, fs, "content/a.xml", "hello")
	mustWrite(t, fs, "content/b.xml", "world")
	ctx, store := newTestContext(t, fs, "build")

	n := &stubNode{name: "copy"}
	cb := Callbacks{
		CacheKey:   func(item string) core.ItemKey { return hash.ItemKey(item) },
		OutputPath: func(item string) string { return "build/copy/" + item },
		PerformWork: func(item, outputPath string) (WorkResult, error) {
			mustWrite(t, fs, outputPath, "x")
			return WorkResult{}, nil
		},
	}

	sig, err := contentSignatureOf(n, core.KindTagOf(n))
	require.NoError(t, err)

	_, err = n.WithCache(ctx, n, []string{"content/a.xml", "content/b.xml"}, cb)
	require.NoError(t, err)

	_, ok := store.Get(sig, hash.ItemKey("content/b.xml"))
	require.True(t, ok)

	_, err = n.WithCache(ctx, n, []string{"content/a.xml"}, cb)
	require.NoError(t, err)

	_, ok = store.Get(sig, hash.ItemKey("content/b.xml"))
	assert.False(t, ok, "clean_except must prune the cache entry for the dropped item")
}
