// Package validate implements the four-tier cache-entry validity check of
// spec.md §4.5: upstream-set signatures, tracked-file timestamps, tracked-
// file content hashes, and output existence, short-circuiting on the first
// failure.
package validate

import (
	"github.com/go-git/go-billy/v5"

	"github.com/kjhansen/siteloom/internal/core"
	"github.com/kjhansen/siteloom/internal/hash"
	"github.com/kjhansen/siteloom/internal/resolve"
)

// IsValid reports whether entry is still usable against the current state
// of fsys. It never returns an error: every failure mode (missing file,
// upstream not yet run, signature mismatch) is simply "invalid", per
// spec.md's "logged as cache-miss reasons, never treated as errors" policy.
func IsValid(fsys billy.Filesystem, buildDir string, outputs resolve.NodeOutputs, entry *core.CacheEntry) bool {
	if !upstreamSignaturesMatch(fsys, buildDir, outputs, entry) {
		return false
	}
	if !trackedFilesMatch(fsys, entry) {
		return false
	}
	if !outputsExist(fsys, entry) {
		return false
	}
	return true
}

// upstreamSignaturesMatch is tier 1: for each upstream this entry depends
// on, re-resolve its current output set and compare signatures. A failure
// to resolve (upstream hasn't run) is itself an invalidation.
func upstreamSignaturesMatch(fsys billy.Filesystem, buildDir string, outputs resolve.NodeOutputs, entry *core.CacheEntry) bool {
	for upstreamNode, sig := range entry.UpstreamOutputSignatures {
		ref := core.RefInput{Node: upstreamNode, Key: sig.OutputKey, Glob: sig.Glob}
		paths, err := resolve.Resolve(fsys, buildDir, ref, outputs)
		if err != nil {
			return false
		}
		if hash.UpstreamSetSignature(paths) != sig.Signature {
			return false
		}
	}
	return true
}

// trackedFilesMatch is tiers 2 and 3: a timestamp match is the fast path;
// on mismatch, re-hash and accept a "touched but identical" file.
func trackedFilesMatch(fsys billy.Filesystem, entry *core.CacheEntry) bool {
	for trackedPath, tracked := range entry.TrackedFiles {
		info, err := fsys.Stat(trackedPath)
		if err != nil {
			return false
		}
		if info.ModTime().UnixMilli() == tracked.ModTime {
			continue
		}
		digest, err := hash.HashFile(fsys, trackedPath)
		if err != nil {
			return false
		}
		if digest != tracked.Hash {
			return false
		}
	}
	return true
}

// outputsExist is tier 4: every path an entry claims to have produced must
// still exist on disk.
func outputsExist(fsys billy.Filesystem, entry *core.CacheEntry) bool {
	for _, paths := range entry.OutputsByKey {
		for _, p := range paths {
			if _, err := fsys.Stat(p); err != nil {
				return false
			}
		}
	}
	return true
}
