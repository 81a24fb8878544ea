package siteloom

import (
	"github.com/go-git/go-billy/v5"

	"github.com/kjhansen/siteloom/internal/cache"
	"github.com/kjhansen/siteloom/internal/core"
	"github.com/kjhansen/siteloom/internal/manifest"
	"github.com/kjhansen/siteloom/internal/resolve"
)

// FileRef is a stable, opaque handle to a single file on disk.
type FileRef = core.FileRef

// NodeOutputRef references one keyed output set produced by another node.
type NodeOutputRef = core.NodeOutputRef

// Input is the sum type a node's Items() resolves through.
type Input = core.Input

// GlobInput resolves to the files matched by a single glob pattern.
type GlobInput = core.GlobInput

// ListInput resolves to the concatenation, in order, of each member's
// resolution.
type ListInput = core.ListInput

// RefInput resolves to an upstream node's output set.
type RefInput = core.RefInput

// Value wraps one entry of a node's processing config.
type Value = core.Value

// PlainValue wraps a plain JSON-serialisable config value.
func PlainValue(v interface{}) Value { return core.PlainValue(v) }

// FileRefValue wraps a FileRef config value.
func FileRefValue(ref FileRef) Value { return core.FileRefValue(ref) }

// NodeOutputRefValue wraps a NodeOutputRef config value.
func NodeOutputRefValue(ref NodeOutputRef) Value { return core.NodeOutputRefValue(ref) }

// NodeOutput is one produced entry of a node's run.
type NodeOutput = core.NodeOutput

// Node is the contract every pipeline unit of work implements.
type Node = core.Node

// OnAddedToPipeline is the optional capability a composite Node implements.
type OnAddedToPipeline = core.OnAddedToPipeline

// KindTagger is the optional capability a Node implements to name its
// content-signature kind prefix.
type KindTagger = core.KindTagger

// Context is the sole runtime surface passed to Node.Run.
type Context = core.Context

// CacheEntry is the persisted record for one cache entry.
type CacheEntry = core.CacheEntry

// CacheStore is the persistence surface a Context exposes to nodes.
type CacheStore = core.CacheStore

// Logger is the output interface used throughout siteloom.
type Logger = core.Logger

// Pipeline owns the full set of nodes and runs them in dependency order.
type Pipeline = core.Pipeline

// Manifest is a parsed YAML pipeline declaration.
type Manifest = manifest.Manifest

// Registry resolves a manifest node's "kind" to a constructor.
type Registry = manifest.Registry

// NewLogger returns the default, stdlib-log-backed Logger.
func NewLogger() Logger { return core.NewLogger() }

// NewFilesystemCache returns a CacheStore persisting entries under
// <root>/<cacheDir>.
func NewFilesystemCache(root billy.Filesystem, cacheDir string) (CacheStore, error) {
	return cache.NewStore(root, cacheDir)
}

// NewPipeline constructs an empty Pipeline rooted at buildDir, reading
// project files through fs, persisting cache state through cacheStore and
// logging progress through logger. Its resolver is wired automatically.
func NewPipeline(buildDir string, cacheStore CacheStore, logger Logger, fs billy.Filesystem) *Pipeline {
	p := core.NewPipeline(buildDir, cacheStore, logger, fs)
	var nodeOutputs func(string) ([]NodeOutput, bool) = p.GetNodeOutputs
	p.SetResolver(func(in Input) ([]string, error) {
		return resolve.Resolve(fs, buildDir, in, resolve.NodeOutputs(nodeOutputs))
	})
	return p
}

// NewRegistry returns an empty node-kind Registry.
func NewRegistry() *Registry { return manifest.NewRegistry() }

// LoadManifest parses a YAML pipeline declaration.
func LoadManifest(data []byte) (*Manifest, error) { return manifest.Load(data) }
