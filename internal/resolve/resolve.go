// Package resolve expands a Node's Input into a concrete, ordered list of
// file paths (spec.md §4.2). It is the one component that touches a real
// (or in-memory) filesystem on the "input" side of a node; it never reads
// or writes the cache.
package resolve

import (
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"

	"github.com/kjhansen/siteloom/internal/core"
)

// NodeOutputs looks up a previously-run node's reported NodeOutputs. It is
// the same shape Context.GetNodeOutputs exposes to a node's Run method;
// Resolve accepts it directly so internal/resolve has no dependency on
// internal/core.Pipeline.
type NodeOutputs func(name string) ([]core.NodeOutput, bool)

// Resolve expands input against fsys (rooted at the project root) and
// buildDir, using outputs to satisfy NodeOutputRef lookups, implementing
// the four resolution rules of spec.md §4.2 in order.
func Resolve(fsys billy.Filesystem, buildDir string, input core.Input, outputs NodeOutputs) ([]string, error) {
	switch v := input.(type) {
	case nil:
		return nil, nil
	case core.RefInput:
		return resolveRef(core.NodeOutputRef(v), buildDir, outputs)
	case core.GlobInput:
		return resolveGlob(fsys, string(v))
	case core.ListInput:
		return resolveList(fsys, buildDir, v, outputs)
	default:
		return nil, nil
	}
}

func resolveRef(ref core.NodeOutputRef, buildDir string, outputs NodeOutputs) ([]string, error) {
	upstream, ok := outputs(ref.Node)
	if !ok {
		return nil, errors.Errorf("node hasn't run or produced no outputs under %s", ref.Key)
	}

	var candidates []string
	for _, out := range upstream {
		candidates = append(candidates, out[ref.Key]...)
	}
	if len(candidates) == 0 {
		return nil, errors.Errorf("node hasn't run or produced no outputs under %s", ref.Key)
	}

	if ref.Glob == "" {
		return dedupe(candidates), nil
	}

	extended := path.Join(buildDir, "*", ref.Glob)
	var filtered []string
	for _, c := range candidates {
		plain, err1 := doublestar.Match(ref.Glob, c)
		withBuildPrefix, err2 := doublestar.Match(extended, c)
		if err1 != nil && err2 != nil {
			continue
		}
		if plain || withBuildPrefix {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return nil, errors.Errorf(
			"glob %q matched none of the %d candidate path(s) from %s[%s]: %s",
			ref.Glob, len(candidates), ref.Node, ref.Key, strings.Join(candidates, ", "))
	}
	return dedupe(filtered), nil
}

func resolveGlob(fsys billy.Filesystem, pattern string) ([]string, error) {
	all, err := listFiles(fsys, ".")
	if err != nil {
		return nil, errors.Wrap(err, "resolve: walk filesystem")
	}

	var matches []string
	for _, p := range all {
		ok, err := doublestar.Match(pattern, p)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve: bad glob pattern %q", pattern)
		}
		if ok {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, errors.Errorf("No files found for pattern: %s", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

func resolveList(fsys billy.Filesystem, buildDir string, list core.ListInput, outputs NodeOutputs) ([]string, error) {
	var result []string
	for _, item := range list {
		paths, err := Resolve(fsys, buildDir, item, outputs)
		if err != nil {
			return nil, err
		}
		result = append(result, paths...)
	}
	return dedupe(result), nil
}

// listFiles walks fsys from root, returning every regular file's path
// relative to root in no particular order.
func listFiles(fsys billy.Filesystem, root string) ([]string, error) {
	infos, err := fsys.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, info := range infos {
		full := path.Join(root, info.Name())
		if full == "." {
			full = info.Name()
		}
		if info.IsDir() {
			children, err := listFiles(fsys, full)
			if err != nil {
				return nil, err
			}
			result = append(result, children...)
			continue
		}
		result = append(result, strings.TrimPrefix(full, "./"))
	}
	return result, nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	return result
}
