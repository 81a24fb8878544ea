package main

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadManifestFileReturnsContents(t *testing.T) {
	fs := memfs.New()
	f, err := fs.Create("site.yaml")
	require.NoError(t, err)
	_, err = f.Write([]byte("buildDir: build\nnodes: []\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := readManifestFile(fs, "site.yaml")
	require.NoError(t, err)
	assert.Equal(t, "buildDir: build\nnodes: []\n", string(data))
}

func TestReadManifestFileErrorsOnMissingPath(t *testing.T) {
	fs := memfs.New()
	_, err := readManifestFile(fs, "missing.yaml")
	assert.Error(t, err)
}

func TestNewRegistryKnowsFileCopy(t *testing.T) {
	r := newRegistry()
	assert.Contains(t, r.Kinds(), "file-copy")
}
