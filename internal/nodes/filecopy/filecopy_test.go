package filecopy

import (
	"io"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjhansen/siteloom/internal/cache"
	"github.com/kjhansen/siteloom/internal/core"
	"github.com/kjhansen/siteloom/internal/manifest"
	"github.com/kjhansen/siteloom/internal/resolve"
)

func mustWrite(t *testing.T, fs billy.Filesystem, p, content string) {
	t.Helper()
	f, err := fs.Create(p)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func readAll(t *testing.T, fs billy.Filesystem, p string) string {
	t.Helper()
	f, err := fs.Open(p)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

func newTestContext(t *testing.T, fs billy.Filesystem) *core.Context {
	t.Helper()
	store, err := cache.NewStore(fs, ".cache")
	require.NoError(t, err)

	var nodeOutputs func(string) ([]core.NodeOutput, bool)
	nodeOutputs = func(string) ([]core.NodeOutput, bool) { return nil, false }
	resolver := func(in core.Input) ([]string, error) {
		return resolve.Resolve(fs, "build", in, resolve.NodeOutputs(nodeOutputs))
	}
	return core.NewContext("build", store, nil, fs, resolver, nodeOutputs)
}

func TestRunCopiesEachResolvedItem(t *testing.T) {
	fs := memfs.New()
	mustWrite(t, fs, "content/a.xml", "hello")
	mustWrite(t, fs, "content/b.xml", "world")
	ctx := newTestContext(t, fs)

	n := New("copy", core.GlobInput("content/*.xml"), nil, ".html", nil)
	outputs, err := n.Run(ctx)
	require.NoError(t, err)
	require.Len(t, outputs, 2)

	assert.Equal(t, "hello", readAll(t, fs, "build/copy/content/a.html"))
	assert.Equal(t, "world", readAll(t, fs, "build/copy/content/b.html"))
}

func TestRunReusesCacheOnSecondCall(t *testing.T) {
	fs := memfs.New()
	mustWrite(t, fs, "content/a.xml", "hello")
	ctx := newTestContext(t, fs)

	n := New("copy", core.GlobInput("content/*.xml"), nil, "", nil)
	_, err := n.Run(ctx)
	require.NoError(t, err)

	// Remove the produced output's source modification trace by re-running
	// against the same unmodified input: a valid cache entry should make
	// this a cache hit rather than performing the copy a second time.
	outputs, err := n.Run(ctx)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, []string{"build/copy/content/a.xml"}, outputs[0]["default"])
}

func TestKindTagIsFileCopy(t *testing.T) {
	n := New("copy", nil, nil, "", nil)
	assert.Equal(t, "FileCopy", n.KindTag())
}

func TestFromSpecExtractsExtensionFromConfig(t *testing.T) {
	spec := manifest.NodeSpec{
		Name:  "copy",
		Kind:  "file-copy",
		Items: &manifest.InputSpec{Glob: "content/*.xml"},
		Config: map[string]manifest.ConfigValueSpec{
			"extension": {Plain: ".html"},
		},
	}
	built, err := FromSpec(spec)
	require.NoError(t, err)
	n, ok := built.(*Node)
	require.True(t, ok)
	assert.Equal(t, ".html", n.newExt)
	assert.Equal(t, "copy", n.Name())
	_, hasExtKey := n.Config()["extension"]
	assert.False(t, hasExtKey, "extension must be consumed, not left in Config")
}
