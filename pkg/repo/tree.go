package repo

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path string
	Hash object.Hash
	Mode string
}

// BuildTree converts flat index entries into a hierarchical tree structure,
// writing every subtree and then the root tree to the store, and returns the
// root hash.
//
// Entries use forward-slash paths (e.g. "pkg/util/util.go"). Within one
// directory, files keep the order they have in entries and are followed by
// the subdirectories in lexical order, so callers wanting reproducible
// digests must pass entries in a fixed order.
func (r *Repo) BuildTree(entries []IndexEntry) (object.Hash, error) {
	if err := validateTreeInput(entries); err != nil {
		return "", fmt.Errorf("build tree: %w", err)
	}
	treeEntries, err := r.buildTreeEntries(entries, "")
	if err != nil {
		return "", err
	}
	h, err := r.Store.WriteTree(&object.TreeObj{Entries: treeEntries})
	if err != nil {
		return "", fmt.Errorf("build tree: write root: %w", err)
	}
	r.Logger.WithFields(logrus.Fields{"tree": h, "files": len(entries)}).Debug("built tree")
	return h, nil
}

// buildTreeEntries returns the tree entries for the directory base. Each
// subdirectory is built recursively and stored before its entry is emitted.
func (r *Repo) buildTreeEntries(all []IndexEntry, base string) ([]object.TreeEntry, error) {
	var out []object.TreeEntry
	subdirs := make(map[string]struct{})

	for _, e := range all {
		rel := e.Path
		if base != "" {
			if !strings.HasPrefix(e.Path, base+"/") {
				continue
			}
			rel = e.Path[len(base)+1:]
		}

		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			mode := e.Mode
			if mode == "" {
				mode = object.TreeModeFile
			}
			out = append(out, object.TreeEntry{Mode: mode, Name: rel, Hash: e.Hash})
			continue
		}
		subdirs[rel[:slash]] = struct{}{}
	}

	names := make([]string, 0, len(subdirs))
	for name := range subdirs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		childBase := name
		if base != "" {
			childBase = base + "/" + name
		}
		children, err := r.buildTreeEntries(all, childBase)
		if err != nil {
			return nil, err
		}
		subHash, err := r.Store.WriteTree(&object.TreeObj{Entries: children})
		if err != nil {
			return nil, fmt.Errorf("build tree %q: %w", childBase, err)
		}
		out = append(out, object.TreeEntry{Mode: object.TreeModeDir, Name: name, Hash: subHash})
	}
	return out, nil
}

// validateTreeInput rejects entry sets that cannot form a tree: malformed
// paths, duplicate paths, and a name used both as a file and a directory.
func validateTreeInput(entries []IndexEntry) error {
	files := make(map[string]struct{}, len(entries))
	dirs := make(map[string]struct{})
	for _, e := range entries {
		if e.Path == "" || strings.HasPrefix(e.Path, "/") || strings.HasSuffix(e.Path, "/") {
			return vcserr.Errorf(vcserr.ErrInvalidInput, "invalid path %q", e.Path)
		}
		segs := strings.Split(e.Path, "/")
		for _, seg := range segs {
			if seg == "" || seg == "." || seg == ".." {
				return vcserr.Errorf(vcserr.ErrInvalidInput, "invalid path %q", e.Path)
			}
		}
		if _, dup := files[e.Path]; dup {
			return vcserr.Errorf(vcserr.ErrInvalidInput, "duplicate path %q", e.Path)
		}
		files[e.Path] = struct{}{}
		for i := 1; i < len(segs); i++ {
			dirs[strings.Join(segs[:i], "/")] = struct{}{}
		}
	}
	for d := range dirs {
		if _, clash := files[d]; clash {
			return vcserr.Errorf(vcserr.ErrInvalidInput, "path %q is both a file and a directory", d)
		}
	}
	return nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full paths (using forward slashes), in tree order.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.IsDir() {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}
		result = append(result, TreeFileEntry{
			Path: fullPath,
			Hash: entry.Hash,
			Mode: entry.Mode,
		})
	}
	return result, nil
}

// headTreeFiles flattens the tree of the HEAD commit into a path-keyed map.
// The map is empty when there are no commits yet.
func (r *Repo) headTreeFiles() (map[string]TreeFileEntry, error) {
	result := make(map[string]TreeFileEntry)

	headHash, ok, err := r.ResolveHead()
	if err != nil {
		return nil, err
	}
	if !ok {
		return result, nil
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	entries, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("flatten HEAD tree: %w", err)
	}
	for _, e := range entries {
		result[e.Path] = e
	}
	return result, nil
}
