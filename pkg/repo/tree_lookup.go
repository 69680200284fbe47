package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

// ResolveObject turns a user-supplied object name into a hash. Accepted
// forms are a full hash, a unique hash prefix of at least four characters,
// "HEAD", and "<commit>:<path>" which names the tree or blob at path in
// that commit's tree.
func (r *Repo) ResolveObject(name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	rev, relPath, hasPath := strings.Cut(name, ":")

	h, err := r.resolveRev(rev)
	if err != nil {
		return "", err
	}
	if !hasPath {
		return h, nil
	}

	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", name, err)
	}
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	if relPath == "" {
		return commit.TreeHash, nil
	}
	entry, found, err := r.treeEntryAtPath(commit.TreeHash, relPath)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", name, err)
	}
	if !found {
		return "", vcserr.Errorf(vcserr.ErrNotFound, "path %q does not exist in %s", relPath, h.Short())
	}
	return entry.Hash, nil
}

func (r *Repo) resolveRev(rev string) (object.Hash, error) {
	if rev == "" || rev == "HEAD" {
		h, ok, err := r.ResolveHead()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", vcserr.Errorf(vcserr.ErrNotFound, "HEAD does not point at a commit yet")
		}
		return h, nil
	}
	if h, err := object.ParseHash(rev); err == nil {
		return h, nil
	}
	return r.expandShortHash(rev)
}

// expandShortHash finds the single stored object whose hash starts with
// prefix.
func (r *Repo) expandShortHash(prefix string) (object.Hash, error) {
	if len(prefix) < 4 || len(prefix) >= 40 {
		return "", vcserr.Errorf(vcserr.ErrInvalidInput, "invalid object name %q", prefix)
	}
	if _, err := object.ParseHash(prefix + strings.Repeat("0", 40-len(prefix))); err != nil {
		return "", vcserr.Errorf(vcserr.ErrInvalidInput, "invalid object name %q", prefix)
	}

	dir := filepath.Join(r.VcsDir, "objects", prefix[:2])
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("resolve %q: %w", prefix, err)
	}
	var matches []object.Hash
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix[2:]) && !strings.HasPrefix(e.Name(), ".tmp-") {
			matches = append(matches, object.Hash(prefix[:2]+e.Name()))
		}
	}
	switch len(matches) {
	case 0:
		return "", vcserr.Errorf(vcserr.ErrNotFound, "object %s not found", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", vcserr.Errorf(vcserr.ErrInvalidInput, "short hash %s is ambiguous (%d objects)", prefix, len(matches))
	}
}

func (r *Repo) treeEntryAtPath(treeHash object.Hash, relPath string) (object.TreeEntry, bool, error) {
	parts := strings.Split(relPath, "/")
	current := treeHash

	for i, part := range parts {
		treeObj, err := r.Store.ReadTree(current)
		if err != nil {
			return object.TreeEntry{}, false, fmt.Errorf("read tree %s: %w", current, err)
		}

		var (
			entry object.TreeEntry
			found bool
		)
		for _, te := range treeObj.Entries {
			if te.Name == part {
				entry = te
				found = true
				break
			}
		}
		if !found {
			return object.TreeEntry{}, false, nil
		}

		if i == len(parts)-1 {
			return entry, true, nil
		}
		if !entry.IsDir() {
			return object.TreeEntry{}, false, nil
		}
		current = entry.Hash
	}

	return object.TreeEntry{}, false, nil
}
