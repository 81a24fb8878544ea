package main

import (
	"os"
	"path/filepath"
	"testing"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeTemplateSourceParses(t *testing.T) {
	_, err := template.New("node").Funcs(sprig.TxtFuncMap()).Parse(NodeTemplateSource)
	require.NoError(t, err)
}

func TestNodeTemplateSourceRendersExpectedIdentifiers(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "gallery_index.go")

	gen := template.Must(template.New("node").Funcs(sprig.TxtFuncMap()).Parse(NodeTemplateSource))
	out, err := os.Create(outPath)
	require.NoError(t, err)
	defer out.Close()

	err = gen.Execute(out, map[string]string{
		"name": "GalleryIndex", "varname": "galleryIndex", "flag": "gallery-index", "package": "galleryindex",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "package galleryindex")
	assert.Contains(t, content, "type GalleryIndex struct")
	assert.Contains(t, content, "func NewGalleryIndex(")
	assert.Contains(t, content, `r.Register("gallery-index", galleryindex.FromSpec)`)
}
