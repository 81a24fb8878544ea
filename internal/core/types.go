// Package core defines the node contract, the data model and the
// dependency graph / scheduler at the heart of siteloom: the node/input/
// output model, content signatures, and the sequential pipeline executor.
// It imports no other siteloom package (only the standard library,
// go-billy and pkg/errors), so that the cache store, validator, resolver
// and cache wrapper can all depend on it without creating import cycles.
package core

import (
	"encoding/json"
	"fmt"
)

// FileRef is a stable, opaque handle to a single file on disk. It carries
// no semantics beyond "watch this file as a dependency" and is never
// mutated by a node.
type FileRef struct {
	Path string
}

// NodeOutputRef references one keyed output set produced by another node,
// optionally narrowed by a glob pattern applied to the resolved paths.
type NodeOutputRef struct {
	Node string
	Key  string
	Glob string
}

func (r NodeOutputRef) String() string {
	if r.Glob == "" {
		return fmt.Sprintf("%s[%s]", r.Node, r.Key)
	}
	return fmt.Sprintf("%s[%s]:%s", r.Node, r.Key, r.Glob)
}

// Input is the sum type over which a node's items are resolved: a single
// glob string, a list of Input (flattened on resolution), or a reference
// to an upstream node's output set.
type Input interface {
	isInput()
}

// GlobInput resolves to the files matched by a single glob pattern.
type GlobInput string

func (GlobInput) isInput() {}

// ListInput resolves to the concatenation, in order, of each member's
// resolution.
type ListInput []Input

func (ListInput) isInput() {}

// RefInput resolves to an upstream node's output set, per NodeOutputRef.
type RefInput NodeOutputRef

func (RefInput) isInput() {}

// Value wraps one entry of a node's processing config. A config entry may
// carry a plain value, a FileRef, or a NodeOutputRef; only FileRef and
// NodeOutputRef entries contribute identity information (rather than
// serialised content) to a node's content signature.
type Value struct {
	Plain         interface{}
	fileRef       *FileRef
	nodeOutputRef *NodeOutputRef
}

// PlainValue wraps a plain JSON-serialisable value.
func PlainValue(v interface{}) Value { return Value{Plain: v} }

// FileRefValue wraps a FileRef.
func FileRefValue(ref FileRef) Value { return Value{fileRef: &ref} }

// NodeOutputRefValue wraps a NodeOutputRef.
func NodeOutputRefValue(ref NodeOutputRef) Value { return Value{nodeOutputRef: &ref} }

// AsFileRef returns the wrapped FileRef and true, or the zero value and
// false if this Value does not carry one.
func (v Value) AsFileRef() (FileRef, bool) {
	if v.fileRef == nil {
		return FileRef{}, false
	}
	return *v.fileRef, true
}

// AsNodeOutputRef returns the wrapped NodeOutputRef and true, or the zero
// value and false if this Value does not carry one.
func (v Value) AsNodeOutputRef() (NodeOutputRef, bool) {
	if v.nodeOutputRef == nil {
		return NodeOutputRef{}, false
	}
	return *v.nodeOutputRef, true
}

// MarshalJSON serialises the Value for content-signature purposes: a
// FileRef or NodeOutputRef contributes only its identity (never file
// contents), matching spec.md's "paths included, contents not" rule.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.fileRef != nil {
		return json.Marshal(map[string]string{"$fileRef": v.fileRef.Path})
	}
	if v.nodeOutputRef != nil {
		return json.Marshal(map[string]string{
			"$nodeOutputRef": v.nodeOutputRef.Node,
			"key":            v.nodeOutputRef.Key,
			"glob":           v.nodeOutputRef.Glob,
		})
	}
	return json.Marshal(v.Plain)
}

// NodeOutput is one produced entry of a node's run: a mapping from output
// key to the list of file paths produced under that key. A node returns
// one NodeOutput per processed item, or a single aggregate entry for a
// no-items node.
type NodeOutput map[string][]string

// ContentSignature identifies a node's configuration identity. It is
// stable across runs and used as the cache directory name.
type ContentSignature string

// ItemKey is a filesystem-safe, deterministic short identifier for one
// item, used as the cache file name within a ContentSignature directory.
type ItemKey string

// FileOrigin tags why a path is tracked inside a CacheEntry.
type FileOrigin string

const (
	// OriginItem tags the file the item itself was derived from.
	OriginItem FileOrigin = "item"
	// OriginFileRef tags a file referenced from a node's processing config.
	OriginFileRef FileOrigin = "fileRef"
	// OriginDiscovered tags a dependency a node discovered at work time.
	OriginDiscovered FileOrigin = "discovered"
	// OriginExplicit tags a file tracked for some other, caller-supplied reason.
	OriginExplicit FileOrigin = "explicit"
)

// TrackedFile is one entry of a CacheEntry's trackedFiles map.
type TrackedFile struct {
	Hash    string     `json:"hash"`
	ModTime int64      `json:"modTime"`
	Origin  FileOrigin `json:"origin"`
}

// UpstreamOutputSignature records the signature over an upstream node's
// resolved output paths at the time a cache entry was written, so that a
// later run can detect whether the upstream's produced *set* of paths
// changed even when none of their contents did.
type UpstreamOutputSignature struct {
	Signature string `json:"signature"`
	OutputKey string `json:"outputKey"`
	Glob      string `json:"glob,omitempty"`
}

// CacheEntry is the persisted record for one (ContentSignature, ItemKey)
// pair. It is serialised verbatim to JSON by internal/cache.
type CacheEntry struct {
	ItemKey                  ItemKey                             `json:"itemKey"`
	OutputsByKey             map[string][]string                 `json:"outputsByKey"`
	OutputBaseDir            string                              `json:"outputBaseDir"`
	TrackedFiles             map[string]TrackedFile              `json:"trackedFiles"`
	UpstreamOutputSignatures map[string]UpstreamOutputSignature  `json:"upstreamOutputSignatures"`
	Timestamp                int64                               `json:"timestamp"`
}

// CacheStore is the persistence surface a Context exposes to nodes and to
// internal/node's cache wrapper. Implemented by internal/cache.Store.
type CacheStore interface {
	Get(sig ContentSignature, key ItemKey) (*CacheEntry, bool)
	Set(sig ContentSignature, key ItemKey, entry *CacheEntry) error
	CleanExcept(sig ContentSignature, keep []ItemKey) error
	Clear(sig ContentSignature) error
	ClearAll() error
	CopyToExpectedPath(src, dst string) error
}

// Logger is the output interface used throughout siteloom components.
type Logger interface {
	Info(...interface{})
	Infof(string, ...interface{})
	Warn(...interface{})
	Warnf(string, ...interface{})
	Error(...interface{})
	Errorf(string, ...interface{})
	Critical(...interface{})
	Criticalf(string, ...interface{})
}
