// Package cache persists and retrieves CacheEntry records on disk, keyed by
// (content signature, item key), per spec.md §4.4. Disk I/O runs through
// github.com/go-git/go-billy/v5, the teacher's own filesystem abstraction
// (used there for osfs/memfs git-object storage), repurposed here for plain
// JSON file I/O so the same Store works against a real directory or an
// in-memory filesystem in tests.
package cache

import (
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/fatih/camelcase"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"

	"github.com/kjhansen/siteloom/internal/core"
)

// Store implements core.CacheStore. Cache entries live under a chroot of
// root at cacheDir; CopyToExpectedPath's src/dst are paths on root itself,
// since a reconstructed artifact is copied into the project's own build
// tree, not into the cache directory.
type Store struct {
	root    billy.Filesystem
	entries billy.Filesystem
}

// NewStore returns a Store persisting entries under <root>/<cacheDir>.
func NewStore(root billy.Filesystem, cacheDir string) (*Store, error) {
	if err := root.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cache: mkdir %s", cacheDir)
	}
	entries, err := root.Chroot(cacheDir)
	if err != nil {
		return nil, errors.Wrapf(err, "cache: chroot %s", cacheDir)
	}
	return &Store{root: root, entries: entries}, nil
}

// Get loads the entry for (sig, key). A missing file or unparseable JSON is
// reported as a miss, never an error, per spec.md §4.4.
func (s *Store) Get(sig core.ContentSignature, key core.ItemKey) (*core.CacheEntry, bool) {
	f, err := s.entries.Open(entryPath(sig, key))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var entry core.CacheEntry
	if err := json.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// Set serialises entry and writes it to <cacheDir>/<sig>/<key>.json,
// writing to a temporary file and renaming into place so a reader never
// observes partial JSON (spec.md §5).
func (s *Store) Set(sig core.ContentSignature, key core.ItemKey, entry *core.CacheEntry) error {
	dir := sigDir(sig)
	if err := s.entries.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "cache: mkdir %s", dir)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cache: marshal entry")
	}

	tmp, err := s.entries.TempFile(dir, "tmp-")
	if err != nil {
		return errors.Wrapf(err, "cache: create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.entries.Remove(tmpName)
		return errors.Wrap(err, "cache: write entry")
	}
	if err := tmp.Close(); err != nil {
		s.entries.Remove(tmpName)
		return errors.Wrap(err, "cache: close entry")
	}

	finalPath := entryPath(sig, key)
	if err := s.entries.Rename(tmpName, finalPath); err != nil {
		s.entries.Remove(tmpName)
		return errors.Wrapf(err, "cache: rename into %s", finalPath)
	}
	return nil
}

// CleanExcept deletes every file in <cacheDir>/<sig>/ whose basename is not
// the sanitised form of one of keep, per spec.md §4.4 and invariant I8. A
// missing signature directory is not an error.
func (s *Store) CleanExcept(sig core.ContentSignature, keep []core.ItemKey) error {
	dir := sigDir(sig)
	infos, err := s.entries.ReadDir(dir)
	if err != nil {
		return nil
	}

	keepNames := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		keepNames[entryFileName(k)] = struct{}{}
	}

	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if _, ok := keepNames[info.Name()]; ok {
			continue
		}
		if err := s.entries.Remove(path.Join(dir, info.Name())); err != nil {
			return errors.Wrapf(err, "cache: prune %s", info.Name())
		}
	}
	return nil
}

// Clear removes the entire subtree for sig.
func (s *Store) Clear(sig core.ContentSignature) error {
	dir := sigDir(sig)
	if _, err := s.entries.Stat(dir); err != nil {
		return nil
	}
	return util.RemoveAll(s.entries, dir)
}

// ClearAll removes the whole cache directory's contents.
func (s *Store) ClearAll() error {
	infos, err := s.entries.ReadDir(".")
	if err != nil {
		return nil
	}
	for _, info := range infos {
		if err := util.RemoveAll(s.entries, info.Name()); err != nil {
			return errors.Wrapf(err, "cache: clear %s", info.Name())
		}
	}
	return nil
}

// CopyToExpectedPath copies the artifact at src to dst, both paths on the
// project filesystem, creating dst's parent directory as needed, so a
// downstream consumer expecting a different base directory finds the
// artifact there.
func (s *Store) CopyToExpectedPath(src, dst string) error {
	in, err := s.root.Open(src)
	if err != nil {
		return errors.Wrapf(err, "cache: open %s", src)
	}
	defer in.Close()

	if err := s.root.MkdirAll(path.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "cache: mkdir for %s", dst)
	}
	out, err := s.root.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "cache: create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "cache: copy %s to %s", src, dst)
	}
	return nil
}

func sigDir(sig core.ContentSignature) string {
	return sanitizeForDisk(string(sig))
}

func entryPath(sig core.ContentSignature, key core.ItemKey) string {
	return path.Join(sigDir(sig), entryFileName(key))
}

func entryFileName(key core.ItemKey) string {
	return sanitizeForDisk(string(key)) + ".json"
}

// sanitizeForDisk implements spec.md §4.4's sanitisation rule. It first
// splits camel-case boundaries (so a content signature's KindTag prefix,
// e.g. "XSLTTransform", reads as a hyphenated slug rather than one run-on
// lowercase token) using the teacher's own camelcase dependency, then
// lowercases, replaces path separators with "-" and dots with "_", drops
// any remaining character outside [a-zA-Z0-9-_], collapses repeated
// hyphens, and bounds the result to a filesystem-safe length.
func sanitizeForDisk(raw string) string {
	words := camelcase.Split(raw)
	joined := strings.ToLower(strings.Join(words, "-"))
	joined = strings.ReplaceAll(joined, "/", "-")
	joined = strings.ReplaceAll(joined, ".", "_")

	var b strings.Builder
	for _, r := range joined {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	result := b.String()
	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}
	result = strings.Trim(result, "-")

	const maxLen = 150
	if len(result) > maxLen {
		result = result[:maxLen]
	}
	if result == "" {
		result = "entry"
	}
	return result
}
