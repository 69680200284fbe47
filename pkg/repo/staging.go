package repo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

// IndexEntry records the staged state of a single file. Path is relative to
// the repository root and always uses forward slashes. A Deleted entry stages
// the removal of a committed path; Hash and Mode then echo the HEAD entry.
type IndexEntry struct {
	Path    string      `json:"path"`
	Hash    object.Hash `json:"hash"`
	Size    int64       `json:"size"`
	Mode    string      `json:"mode,omitempty"`
	Deleted bool        `json:"deleted,omitempty"`
}

// Index is the staging list: a set of entries keyed by path. Entry order is
// insertion order and carries no meaning.
type Index struct {
	Entries []IndexEntry
}

// Get returns the entry for path.
func (ix *Index) Get(path string) (IndexEntry, bool) {
	for _, e := range ix.Entries {
		if e.Path == path {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// Set inserts e, replacing any existing entry with the same path.
func (ix *Index) Set(e IndexEntry) {
	for i := range ix.Entries {
		if ix.Entries[i].Path == e.Path {
			ix.Entries[i] = e
			return
		}
	}
	ix.Entries = append(ix.Entries, e)
}

// Remove deletes the entry for path and reports whether one existed.
func (ix *Index) Remove(path string) bool {
	for i := range ix.Entries {
		if ix.Entries[i].Path == path {
			ix.Entries = append(ix.Entries[:i], ix.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Sorted returns a copy of the entries ordered by path.
func (ix *Index) Sorted() []IndexEntry {
	out := make([]IndexEntry, len(ix.Entries))
	copy(out, ix.Entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// indexPath returns the filesystem path to the staging index file.
func (r *Repo) indexPath() string {
	return filepath.Join(r.VcsDir, "index")
}

// ReadIndex loads the staging list from .vcs/index. If the file does not
// exist, an empty Index is returned (no error). Entries written before modes
// were tracked get the regular-file mode.
func (r *Repo) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Index{}, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var entries []IndexEntry
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "read index: unmarshal: %v", err)
		}
	}

	ix := &Index{Entries: make([]IndexEntry, 0, len(entries))}
	for _, e := range entries {
		if e.Path == "" {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "read index: entry with empty path")
		}
		if _, err := object.ParseHash(string(e.Hash)); err != nil {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "read index: entry %q: bad hash %q", e.Path, e.Hash)
		}
		if e.Mode == "" {
			e.Mode = object.TreeModeFile
		}
		ix.Set(e)
	}
	return ix, nil
}

// WriteIndex atomically replaces .vcs/index with ix.
func (r *Repo) WriteIndex(ix *Index) error {
	entries := []IndexEntry{}
	if ix != nil && ix.Entries != nil {
		entries = ix.Entries
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("write index: marshal: %w", err)
	}
	if err := writeFileAtomic(r.indexPath(), data, ".index-tmp-*"); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Add stages the given paths. Directories are walked recursively. Ignored
// files are skipped silently. For each file:
//  1. Line endings are normalized (CRLF and lone CR become LF).
//  2. The normalized content is written as a blob to the object store.
//  3. The index entry for the path is created or replaced.
//
// A tracked path that is gone from the working tree, named directly or found
// under a named directory, is staged for removal instead.
//
// Add returns the repo-relative paths that were staged, in staging order.
func (r *Repo) Add(paths []string) ([]string, error) {
	var added []string
	err := r.withLock("add", func() error {
		ix, err := r.ReadIndex()
		if err != nil {
			return err
		}
		head, err := r.headTreeFiles()
		if err != nil {
			return err
		}
		ignore := NewIgnoreChecker(r.RootDir)

		for _, p := range paths {
			rel, err := r.repoRelPath(p)
			if err != nil {
				return err
			}
			abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
			info, err := os.Stat(abs)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("stat %q: %w", p, err)
				}
				gone := trackedPaths(ix, head, rel)
				if len(gone) == 0 {
					return vcserr.Errorf(vcserr.ErrNotFound, "path does not exist: %s", p)
				}
				for _, g := range gone {
					r.stageRemoval(ix, head, g)
					added = append(added, g)
				}
				continue
			}

			if !info.IsDir() {
				if rel != "." && ignore.IsIgnored(rel) {
					r.Logger.WithField("path", rel).Debug("skipping ignored path")
					continue
				}
				if err := r.stageFile(ix, rel, abs); err != nil {
					return err
				}
				added = append(added, rel)
				continue
			}

			files, err := r.walkWorktree(abs, ignore)
			if err != nil {
				return err
			}
			for _, f := range files {
				if err := r.stageFile(ix, f, filepath.Join(r.RootDir, filepath.FromSlash(f))); err != nil {
					return err
				}
				added = append(added, f)
			}
			for _, g := range trackedPaths(ix, head, rel) {
				if _, err := os.Lstat(filepath.Join(r.RootDir, filepath.FromSlash(g))); !errors.Is(err, fs.ErrNotExist) {
					continue
				}
				r.stageRemoval(ix, head, g)
				added = append(added, g)
			}
		}

		return r.WriteIndex(ix)
	})
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	return added, nil
}

// Remove stages the removal of tracked paths and, unless cached is set,
// deletes them from the working tree. A directory names every tracked file
// under it. Paths the next commit would not record are ErrNotFound. Remove
// returns the removed paths, sorted.
func (r *Repo) Remove(paths []string, cached bool) ([]string, error) {
	var removed []string
	err := r.withLock("rm", func() error {
		ix, err := r.ReadIndex()
		if err != nil {
			return err
		}
		head, err := r.headTreeFiles()
		if err != nil {
			return err
		}

		for _, p := range paths {
			rel, err := r.repoRelPath(p)
			if err != nil {
				return err
			}
			targets := trackedPaths(ix, head, rel)
			if len(targets) == 0 {
				return vcserr.Errorf(vcserr.ErrNotFound, "path %s did not match any tracked file", p)
			}
			for _, t := range targets {
				r.stageRemoval(ix, head, t)
				removed = append(removed, t)
			}
		}
		if err := r.WriteIndex(ix); err != nil {
			return err
		}

		if cached {
			return nil
		}
		for _, p := range removed {
			err := os.Remove(filepath.Join(r.RootDir, filepath.FromSlash(p)))
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove %q: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rm: %w", err)
	}
	sort.Strings(removed)
	return slices.Compact(removed), nil
}

// trackedPaths returns the sorted paths at or under rel that the next commit
// would record: HEAD files not staged for removal, plus staged files.
func trackedPaths(ix *Index, head map[string]TreeFileEntry, rel string) []string {
	under := func(p string) bool {
		return rel == "." || p == rel || strings.HasPrefix(p, rel+"/")
	}
	seen := make(map[string]struct{})
	for p := range head {
		if e, ok := ix.Get(p); ok && e.Deleted {
			continue
		}
		if under(p) {
			seen[p] = struct{}{}
		}
	}
	for _, e := range ix.Entries {
		if !e.Deleted && under(e.Path) {
			seen[e.Path] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// stageRemoval marks a committed path as deleted, or simply unstages a path
// HEAD does not have.
func (r *Repo) stageRemoval(ix *Index, head map[string]TreeFileEntry, rel string) {
	h, ok := head[rel]
	if !ok {
		ix.Remove(rel)
		r.Logger.WithField("path", rel).Debug("unstaged new file")
		return
	}
	ix.Set(IndexEntry{Path: rel, Hash: h.Hash, Mode: h.Mode, Deleted: true})
	r.Logger.WithField("path", rel).Debug("staged removal")
}

func (r *Repo) stageFile(ix *Index, rel, abs string) error {
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %q: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return vcserr.Errorf(vcserr.ErrInvalidInput, "%s is not a regular file", rel)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %q: %w", rel, err)
	}
	content = normalizeLineEndings(content)

	h, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return fmt.Errorf("write blob %q: %w", rel, err)
	}
	ix.Set(IndexEntry{
		Path: rel,
		Hash: h,
		Size: int64(len(content)),
		Mode: modeFromFileInfo(info),
	})
	r.Logger.WithFields(logrus.Fields{"path": rel, "hash": h}).Debug("staged file")
	return nil
}

// normalizeLineEndings rewrites CRLF and lone CR to LF so that the same
// logical text hashes identically on every platform.
func normalizeLineEndings(data []byte) []byte {
	if bytes.IndexByte(data, '\r') < 0 {
		return data
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
}

// repoRelPath converts a path (absolute, or relative to the current
// directory) into a clean forward-slash path relative to the repository
// root. When the current directory is outside the repository, relative
// paths are taken as repo-relative. Paths that escape the worktree are
// rejected with ErrInvalidInput.
func (r *Repo) repoRelPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", vcserr.Errorf(vcserr.ErrInvalidInput, "empty path")
	}

	abs := p
	if !filepath.IsAbs(p) {
		abs = filepath.Join(r.RootDir, p)
		if cwd, err := os.Getwd(); err == nil && isWithin(r.RootDir, cwd) {
			abs = filepath.Join(cwd, p)
		}
	}

	rel, err := filepath.Rel(r.RootDir, filepath.Clean(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", vcserr.Errorf(vcserr.ErrInvalidInput, "path %s is outside repository at %s", p, r.RootDir)
	}
	return filepath.ToSlash(rel), nil
}

func isWithin(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
