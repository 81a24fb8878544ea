// Package node implements the per-item cache-or-compute loop shared by
// every concrete node kind (spec.md §4.6). A concrete node embeds Base and
// calls WithCache from its Run method, supplying only the three callbacks
// that make it distinct: how an item maps to a cache key, where its output
// belongs, and how to actually produce it.
package node

import (
	"path"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/kjhansen/siteloom/internal/core"
	"github.com/kjhansen/siteloom/internal/hash"
	"github.com/kjhansen/siteloom/internal/validate"
)

// WorkResult is what PerformWork reports back for one item: the set of
// dependency paths it discovered while running, and an opaque result value
// handed back to the caller in the returned Result slice.
type WorkResult struct {
	DiscoveredDependencies []string
	Result                 interface{}
}

// Result is one processed item's outcome, returned by WithCache in item
// order.
type Result struct {
	Item       string
	Output     string
	Cached     bool
	WorkResult WorkResult
}

// Callbacks bundles the three item-specific hooks WithCache needs. CacheKey
// and OutputPath must be pure functions of item; PerformWork is the only
// one allowed to touch the filesystem or an external process.
type Callbacks struct {
	CacheKey    func(item string) core.ItemKey
	OutputPath  func(item string) string
	PerformWork func(item, outputPath string) (WorkResult, error)
}

// Base is embedded by every concrete Node implementation. It carries no
// state of its own; WithCache is a pure function of its arguments plus the
// node's own Name/Config/Items, so a Base zero value is always safe to
// embed.
type Base struct{}

// WithCache implements spec.md §4.6's six-step loop. n is the owning node,
// used for its Name, Config and (if implemented) KindTag when deriving the
// content signature and walking for FileRef/NodeOutputRef dependencies.
// items is the already-resolved list of item paths, or a single synthetic
// entry for a no-source node.
func (Base) WithCache(ctx *core.Context, n core.Node, items []string, cb Callbacks) ([]Result, error) {
	sig, err := contentSignatureOf(n, core.KindTagOf(n))
	if err != nil {
		return nil, errors.Wrapf(err, "node %q: derive content signature", n.Name())
	}

	configDeps, upstreamSigs, err := walkConfig(ctx, n.Config())
	if err != nil {
		return nil, errors.Wrapf(err, "node %q: walk config", n.Name())
	}
	for _, ref := range itemNodeOutputRefs(n.Items()) {
		entrySig, err := upstreamSignatureFor(ctx, ref)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q: resolve item upstream %q", n.Name(), ref.Node)
		}
		upstreamSigs[ref.Node] = entrySig
	}

	keys := make([]core.ItemKey, 0, len(items))
	keyByItem := make(map[string]core.ItemKey, len(items))
	for _, item := range items {
		k := cb.CacheKey(item)
		keys = append(keys, k)
		keyByItem[item] = k
	}
	if err := ctx.Cache.CleanExcept(sig, keys); err != nil {
		return nil, errors.Wrapf(err, "node %q: clean_except", n.Name())
	}

	fileRefHashes, err := precomputeFileRefHashes(ctx, configDeps)
	if err != nil {
		return nil, errors.Wrapf(err, "node %q: precompute file-ref hashes", n.Name())
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		key := keyByItem[item]
		expectedOutput := cb.OutputPath(item)

		if cached, ok := ctx.Cache.Get(sig, key); ok && validate.IsValid(ctx.FS, ctx.BuildDir, ctx.GetNodeOutputs, cached) {
			if err := restoreIfRelocated(ctx, cached, expectedOutput); err != nil {
				return nil, errors.Wrapf(err, "node %q: copy_to_expected_path(%s)", n.Name(), item)
			}
			results = append(results, Result{Item: item, Output: expectedOutput, Cached: true})
			continue
		}

		work, err := cb.PerformWork(item, expectedOutput)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q: perform_work(%s)", n.Name(), item)
		}

		entry, err := buildCacheEntry(ctx, key, item, expectedOutput, configDeps, fileRefHashes, upstreamSigs, work.DiscoveredDependencies)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q: build cache entry(%s)", n.Name(), item)
		}
		if err := ctx.Cache.Set(sig, key, entry); err != nil {
			return nil, errors.Wrapf(err, "node %q: cache.set(%s)", n.Name(), item)
		}

		results = append(results, Result{Item: item, Output: expectedOutput, WorkResult: work})
	}

	return results, nil
}

// restoreIfRelocated copies a cached artifact to expectedOutput when the
// entry's recorded outputBaseDir no longer matches the caller's currently
// expected path (spec.md §4.6 step 5, invariant I3).
func restoreIfRelocated(ctx *core.Context, cached *core.CacheEntry, expectedOutput string) error {
	expectedDir := path.Dir(expectedOutput)
	if cached.OutputBaseDir == "" || cached.OutputBaseDir == expectedDir {
		return nil
	}
	for _, outs := range cached.OutputsByKey {
		for _, src := range outs {
			if path.Dir(src) != cached.OutputBaseDir {
				continue
			}
			if err := ctx.Cache.CopyToExpectedPath(src, expectedOutput); err != nil {
				return err
			}
		}
	}
	return nil
}

func contentSignatureOf(n core.Node, kindTag string) (core.ContentSignature, error) {
	fileRefPaths := map[string]string{}
	remaining := map[string]core.Value{}
	for k, v := range n.Config() {
		if ref, ok := v.AsFileRef(); ok {
			fileRefPaths[k] = ref.Path
			continue
		}
		remaining[k] = v
	}
	return hash.ContentSignature(kindTag, fileRefPaths, remaining, hash.ItemsSpec(n.Items()))
}

// walkConfig is step 2: collects every FileRef path (tracked as origin
// fileRef) and eagerly resolves every NodeOutputRef found in the config to
// its current upstream signature.
func walkConfig(ctx *core.Context, config map[string]core.Value) (fileRefPaths []string, upstreamSigs map[string]core.UpstreamOutputSignature, err error) {
	upstreamSigs = map[string]core.UpstreamOutputSignature{}
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := config[k]
		if ref, ok := v.AsFileRef(); ok {
			fileRefPaths = append(fileRefPaths, ref.Path)
			continue
		}
		if ref, ok := v.AsNodeOutputRef(); ok {
			sig, err := upstreamSignatureFor(ctx, ref)
			if err != nil {
				return nil, nil, err
			}
			upstreamSigs[ref.Node] = sig
		}
	}
	return fileRefPaths, upstreamSigs, nil
}

func upstreamSignatureFor(ctx *core.Context, ref core.NodeOutputRef) (core.UpstreamOutputSignature, error) {
	paths, err := ctx.ResolveInput(core.RefInput(ref))
	if err != nil {
		return core.UpstreamOutputSignature{}, err
	}
	return core.UpstreamOutputSignature{
		Signature: hash.UpstreamSetSignature(paths),
		OutputKey: ref.Key,
		Glob:      ref.Glob,
	}, nil
}

func itemNodeOutputRefs(in core.Input) []core.NodeOutputRef {
	switch v := in.(type) {
	case nil:
		return nil
	case core.RefInput:
		return []core.NodeOutputRef{core.NodeOutputRef(v)}
	case core.ListInput:
		var refs []core.NodeOutputRef
		for _, item := range v {
			refs = append(refs, itemNodeOutputRefs(item)...)
		}
		return refs
	default:
		return nil
	}
}

// precomputeFileRefHashes hashes every config file-ref path exactly once,
// per spec.md §4.6 step 5, regardless of how many items reuse it.
func precomputeFileRefHashes(ctx *core.Context, paths []string) (map[string]string, error) {
	result := make(map[string]string, len(paths))
	for _, p := range paths {
		if _, ok := result[p]; ok {
			continue
		}
		digest, err := hash.HashFile(ctx.FS, p)
		if err != nil {
			return nil, errors.Wrapf(err, "hash file-ref %q", p)
		}
		result[p] = digest
	}
	return result, nil
}

func buildCacheEntry(
	ctx *core.Context,
	key core.ItemKey,
	item, outputPath string,
	fileRefPaths []string,
	fileRefHashes map[string]string,
	upstreamSigs map[string]core.UpstreamOutputSignature,
	discovered []string,
) (*core.CacheEntry, error) {
	tracked := map[string]core.TrackedFile{}

	if err := trackFile(ctx, tracked, item, core.OriginItem); err != nil {
		return nil, err
	}
	for _, p := range fileRefPaths {
		digest, ok := fileRefHashes[p]
		if !ok {
			var err error
			digest, err = hash.HashFile(ctx.FS, p)
			if err != nil {
				return nil, err
			}
		}
		info, err := ctx.FS.Stat(p)
		if err != nil {
			return nil, err
		}
		tracked[p] = core.TrackedFile{Hash: digest, ModTime: info.ModTime().UnixMilli(), Origin: core.OriginFileRef}
	}
	for _, p := range discovered {
		if err := trackFile(ctx, tracked, p, core.OriginDiscovered); err != nil {
			return nil, err
		}
	}

	// "default" is the only output key WithCache ever produces: every node
	// built on top of it (file-copy today) reports exactly one output per
	// item. A node with more than one named output per item would need
	// this key derived from its OutputConfig() instead.
	return &core.CacheEntry{
		ItemKey:                  key,
		OutputsByKey:             map[string][]string{"default": {outputPath}},
		OutputBaseDir:            path.Dir(outputPath),
		TrackedFiles:             tracked,
		UpstreamOutputSignatures: upstreamSigs,
		Timestamp:                time.Now().UnixMilli(),
	}, nil
}

func trackFile(ctx *core.Context, tracked map[string]core.TrackedFile, p string, origin core.FileOrigin) error {
	digest, err := hash.HashFile(ctx.FS, p)
	if err != nil {
		return err
	}
	info, err := ctx.FS.Stat(p)
	if err != nil {
		return err
	}
	tracked[p] = core.TrackedFile{Hash: digest, ModTime: info.ModTime().UnixMilli(), Origin: origin}
	return nil
}
