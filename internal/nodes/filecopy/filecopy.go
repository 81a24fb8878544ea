// Package filecopy implements the one concrete node kind this repository
// carries: a node that copies each resolved input file to a build-relative
// output path, optionally renaming the extension. It is the simplest of
// the four node kinds the specification names (XSLT compile, XSLT
// transform, file copy, SSG invocation) and exists so the engine has an
// integration-testable node driving real cache hits and misses without
// pulling in an XSLT engine dependency.
package filecopy

import (
	"io"

	"github.com/pkg/errors"

	"github.com/kjhansen/siteloom/internal/core"
	"github.com/kjhansen/siteloom/internal/hash"
	"github.com/kjhansen/siteloom/internal/manifest"
	"github.com/kjhansen/siteloom/internal/node"
)

// KindTag is the content-signature prefix for every filecopy.Node,
// sanitised by internal/cache into "file-copy-..." cache directories (the
// hex suffix is itself split with hyphens at letter/digit boundaries).
const KindTag = "FileCopy"

// Node copies every item it resolves to a build-relative output path.
type Node struct {
	node.Base

	name         string
	items        core.Input
	config       map[string]core.Value
	newExt       string
	explicitDeps []string
}

// New builds a filecopy.Node named name, iterating items, optionally
// rewriting each output's extension to newExt (pass "" to keep the
// original extension), tracking any FileRef/NodeOutputRef config entries
// for the content signature, and running after explicitDeps.
func New(name string, items core.Input, config map[string]core.Value, newExt string, explicitDeps []string) *Node {
	return &Node{name: name, items: items, config: config, newExt: newExt, explicitDeps: explicitDeps}
}

func (n *Node) Name() string                         { return n.name }
func (n *Node) Items() core.Input                    { return n.items }
func (n *Node) Config() map[string]core.Value        { return n.config }
func (n *Node) OutputConfig() map[string]interface{} { return map[string]interface{}{"extension": n.newExt} }
func (n *Node) ExplicitDependencies() []string       { return n.explicitDeps }

// KindTag implements core.KindTagger so the content signature reads
// "FileCopy-<hex>" rather than being tagged by the node's own Name().
func (n *Node) KindTag() string { return KindTag }

// Run resolves the node's items and copies each one to its build path,
// delegating all caching decisions to node.Base.WithCache.
func (n *Node) Run(ctx *core.Context) ([]core.NodeOutput, error) {
	items, err := ctx.ResolveInput(n.items)
	if err != nil {
		return nil, errors.Wrapf(err, "filecopy %q: resolve items", n.name)
	}

	cb := node.Callbacks{
		CacheKey:   func(item string) core.ItemKey { return hash.ItemKey(item) },
		OutputPath: func(item string) string { return ctx.GetBuildPath(n.name, item, n.newExt) },
		PerformWork: func(item, outputPath string) (node.WorkResult, error) {
			if err := copyFile(ctx, item, outputPath); err != nil {
				return node.WorkResult{}, err
			}
			return node.WorkResult{}, nil
		},
	}

	results, err := n.WithCache(ctx, n, items, cb)
	if err != nil {
		return nil, err
	}

	outputs := make([]core.NodeOutput, 0, len(results))
	for _, r := range results {
		outputs = append(outputs, core.NodeOutput{"default": {r.Output}})
	}
	return outputs, nil
}

func copyFile(ctx *core.Context, src, dst string) error {
	in, err := ctx.FS.Open(src)
	if err != nil {
		return errors.Wrapf(err, "filecopy: open %s", src)
	}
	defer in.Close()

	dir := dst[:len(dst)-len(pathBase(dst))]
	if dir != "" {
		if err := ctx.FS.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "filecopy: mkdir %s", dir)
		}
	}

	out, err := ctx.FS.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "filecopy: create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "filecopy: copy %s to %s", src, dst)
	}
	return nil
}

// FromSpec builds a Node from a manifest.NodeSpec: config["extension"]
// (a plain string) becomes the output extension rewrite, and every other
// config entry is passed through unchanged for the content signature.
// Register it against the "kind" string a manifest uses for this node,
// e.g. r.Register("file-copy", filecopy.FromSpec).
func FromSpec(spec manifest.NodeSpec) (core.Node, error) {
	config := make(map[string]core.Value, len(spec.Config))
	newExt := ""
	for k, v := range spec.Config {
		if k == "extension" {
			if ext, ok := v.Plain.(string); ok {
				newExt = ext
				continue
			}
		}
		config[k] = v.ToValue()
	}
	// DependsOn is layered on separately by manifest.Registry.BuildPipeline,
	// which wraps every constructed node to merge it into
	// ExplicitDependencies; FromSpec itself declares none.
	return New(spec.Name, spec.Items.ToInput(), config, newExt, nil), nil
}

func pathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
