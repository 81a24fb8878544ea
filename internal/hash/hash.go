// Package hash computes the deterministic identities siteloom's cache keys
// on: full file-content hashes, the short upstream-set signature, a node's
// content signature, and per-item cache keys. Standard library crypto/sha256
// is used throughout rather than a third-party hash package, because
// spec.md §3/§4.5 names SHA-256 as the exact digest the on-disk format and
// the upstream-set signature are built on.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"

	"github.com/kjhansen/siteloom/internal/core"
)

// truncatedHexLen is the number of hex characters (8 bytes) kept from a
// SHA-256 sum for short, human-readable identifiers (content signatures,
// item keys, upstream-set signatures).
const truncatedHexLen = 16

// HashFile returns the lowercase hex-encoded SHA-256 digest of path's
// content, read through fs.
func HashFile(fs billy.Filesystem, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "hash: open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hash: read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// UpstreamSetSignature is the first 16 hex chars of SHA-256 over
// sorted(paths).join("|"), per spec.md §4.5. It changes whenever the *set*
// of paths an upstream output resolves to changes, even if none of their
// contents did.
func UpstreamSetSignature(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])[:truncatedHexLen]
}

// ItemKey derives the filesystem-safe, deterministic cache key for an item
// identified by one or more paths (spec.md §3/§9 invariant I9: the key
// depends only on the sorted multiset of paths, so argument order never
// matters). The human-readable prefix is the sanitised basename of the
// lexicographically first path; the suffix guards against basename
// collisions between distinct items.
func ItemKey(paths ...string) core.ItemKey {
	if len(paths) == 0 {
		sum := sha256.Sum256(nil)
		return core.ItemKey("item-" + hex.EncodeToString(sum[:])[:truncatedHexLen])
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	base := sanitizeItemKeyComponent(filepath.Base(sorted[0]))
	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	suffix := hex.EncodeToString(sum[:])[:truncatedHexLen]

	key := base + "-" + suffix
	const maxLen = 200
	if len(key) > maxLen {
		key = key[:maxLen-len(suffix)-1] + "-" + suffix
	}
	return core.ItemKey(key)
}

func sanitizeItemKeyComponent(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return collapseHyphens(b.String())
}

func collapseHyphens(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// ContentSignature derives a node's content signature (spec.md §3): a
// string of the form "<kindTag>-<hex8>" where hex8 is the first 16 hex
// characters of a SHA-256 over the canonical serialisation of:
//
//   - each FileRef processing-config entry, as "key:<path>" (identity, not
//     content);
//   - every remaining config entry, JSON-marshalled with sorted keys
//     (Go's map marshalling already sorts string keys);
//   - the items specification, a caller-supplied literal describing Items().
//
// The output config never participates; callers must not pass it in.
func ContentSignature(kindTag string, fileRefPaths map[string]string, remainingConfig map[string]core.Value, itemsSpec string) (core.ContentSignature, error) {
	fileRefKeys := make([]string, 0, len(fileRefPaths))
	for k := range fileRefPaths {
		fileRefKeys = append(fileRefKeys, k)
	}
	sort.Strings(fileRefKeys)

	var fileRefPart strings.Builder
	for _, k := range fileRefKeys {
		fileRefPart.WriteString(k)
		fileRefPart.WriteByte(':')
		fileRefPart.WriteString(fileRefPaths[k])
		fileRefPart.WriteByte('\n')
	}

	configJSON, err := json.Marshal(remainingConfig)
	if err != nil {
		return "", errors.Wrap(err, "content signature: marshal config")
	}

	h := sha256.New()
	h.Write([]byte(fileRefPart.String()))
	h.Write([]byte{0})
	h.Write(configJSON)
	h.Write([]byte{0})
	h.Write([]byte(itemsSpec))

	sum := h.Sum(nil)
	return core.ContentSignature(fmt.Sprintf("%s-%s", kindTag, hex.EncodeToString(sum)[:truncatedHexLen])), nil
}

// ItemsSpec renders an Input into the literal string ContentSignature mixes
// into a node's signature: a glob's literal text, an array's members
// joined in order, or an upstream reference's "node[key]" identity
// ("node[key]:glob" when a glob filter is set).
func ItemsSpec(in core.Input) string {
	switch v := in.(type) {
	case nil:
		return ""
	case core.GlobInput:
		return string(v)
	case core.ListInput:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = ItemsSpec(item)
		}
		return strings.Join(parts, ",")
	case core.RefInput:
		return core.NodeOutputRef(v).String()
	default:
		return ""
	}
}
