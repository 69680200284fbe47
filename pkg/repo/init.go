package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/vcs/pkg/vcserr"
)

// DefaultBranch is the branch HEAD points at in a fresh repository.
const DefaultBranch = "master"

// Init creates a new repository at path. It creates the .vcs/ directory
// structure: HEAD, an empty index, objects/, refs/heads/ and logs/. Returns
// an error if a .vcs/ directory already exists.
func Init(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	r := newRepo(abs)

	if _, err := os.Stat(r.VcsDir); err == nil {
		return nil, vcserr.Errorf(vcserr.ErrInvalidInput, "init: repository already exists at %s", r.VcsDir)
	}

	dirs := []string{
		filepath.Join(r.VcsDir, "objects"),
		filepath.Join(r.VcsDir, "refs", "heads"),
		filepath.Join(r.VcsDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	head := []byte("ref: refs/heads/" + DefaultBranch + "\n")
	if err := os.WriteFile(filepath.Join(r.VcsDir, "HEAD"), head, 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}
	if err := os.WriteFile(r.indexPath(), []byte("[]"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write index: %w", err)
	}

	return r, nil
}

// Open searches upward from path for a .vcs/ directory and opens the
// repository. Returns an ErrNotFound error if no .vcs/ directory is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		info, err := os.Stat(filepath.Join(cur, vcsDirName))
		if err == nil && info.IsDir() {
			return newRepo(cur), nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, vcserr.Errorf(vcserr.ErrNotFound, "open: not a vcs repository (or any parent up to /)")
		}
		cur = parent
	}
}
