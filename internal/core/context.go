package core

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// Context is the sole runtime surface passed to Node.Run (spec.md §4.3).
// Pipeline.Run constructs a fresh Context for each node it runs, and a
// Context is never mutated concurrently with a running node, per spec.md §5.
type Context struct {
	// BuildDir is the root under which default output paths are built.
	BuildDir string
	// Cache is the persistence surface for the per-node cache wrapper.
	Cache CacheStore
	// Logger receives progress and cache-miss-reason messages.
	Logger Logger
	// FS is rooted at the project root; it is the one filesystem handle
	// every stat/hash/copy operation in the cache wrapper and validator
	// goes through.
	FS billy.Filesystem

	// resolveInput expands an Input into concrete file paths. It is
	// supplied by the owning Pipeline so that Context itself never has
	// to import internal/resolve (which depends on core, not the other
	// way around).
	resolveInput func(Input) ([]string, error)
	// nodeOutputs returns a node's previously recorded NodeOutputs.
	nodeOutputs func(name string) ([]NodeOutput, bool)
}

// NewContext builds a Context. resolveInput and nodeOutputs are supplied
// by the Pipeline that owns this Context.
func NewContext(buildDir string, cache CacheStore, logger Logger, fs billy.Filesystem,
	resolveInput func(Input) ([]string, error),
	nodeOutputs func(name string) ([]NodeOutput, bool)) *Context {
	return &Context{
		BuildDir:     buildDir,
		Cache:        cache,
		Logger:       logger,
		FS:           fs,
		resolveInput: resolveInput,
		nodeOutputs:  nodeOutputs,
	}
}

// ResolveInput expands an Input into an ordered, duplicate-free list of
// file paths, per spec.md §4.2.
func (c *Context) ResolveInput(input Input) ([]string, error) {
	if input == nil {
		return nil, nil
	}
	return c.resolveInput(input)
}

// Log writes a progress message. Nodes call this instead of writing to
// stdout/stderr directly so that a CLI front-end can format it uniformly.
func (c *Context) Log(message string) {
	if c.Logger != nil {
		c.Logger.Info(message)
	}
}

// GetNodeOutputs returns a previously-run node's reported outputs.
func (c *Context) GetNodeOutputs(name string) ([]NodeOutput, bool) {
	if c.nodeOutputs == nil {
		return nil, false
	}
	return c.nodeOutputs(name)
}

// StripBuildPrefix removes the "<buildDir>/<anyNode>/" prefix from
// inputPath if present, returning the path unchanged otherwise.
func (c *Context) StripBuildPrefix(inputPath string) string {
	rel, ok := c.relativeToBuildDir(inputPath)
	if !ok {
		return inputPath
	}
	parts := strings.SplitN(rel, string(filepath.Separator), 2)
	if len(parts) < 2 {
		return rel
	}
	return parts[1]
}

// GetBuildPath computes the canonical build-output path for inputPath
// under the given node's build subdirectory, replacing the extension if
// newExt is non-empty (spec.md §4.3/§6).
func (c *Context) GetBuildPath(nodeName, inputPath, newExt string) string {
	rel := c.StripBuildPrefix(inputPath)
	if filepath.IsAbs(rel) {
		// Not derived from the build dir and not already relative: best
		// effort, express it relative to its own directory tree root.
		rel = strings.TrimPrefix(rel, string(filepath.Separator))
	}
	if newExt != "" {
		ext := filepath.Ext(rel)
		rel = strings.TrimSuffix(rel, ext) + newExt
	}
	return filepath.Join(c.BuildDir, nodeName, rel)
}

func (c *Context) relativeToBuildDir(inputPath string) (string, bool) {
	buildDir := filepath.Clean(c.BuildDir)
	clean := filepath.Clean(inputPath)
	if !strings.HasPrefix(clean, buildDir+string(filepath.Separator)) && clean != buildDir {
		return clean, false
	}
	rel, err := filepath.Rel(buildDir, clean)
	if err != nil {
		return clean, false
	}
	return rel, true
}
