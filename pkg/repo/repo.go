package repo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/vcs/pkg/lock"
	"github.com/odvcencio/vcs/pkg/object"
)

const vcsDirName = ".vcs"

// Repo represents an opened repository. It is constructed once by Init or
// Open and passed to every operation; nothing about the repository lives in
// package-level state.
type Repo struct {
	RootDir string        // working directory root
	VcsDir  string        // .vcs/ directory
	Store   *object.Store // content-addressed object store

	// Logger receives debug events for mutating operations. It discards
	// everything unless the caller replaces it.
	Logger logrus.FieldLogger
}

func newRepo(root string) *Repo {
	vcsDir := filepath.Join(root, vcsDirName)
	return &Repo{
		RootDir: root,
		VcsDir:  vcsDir,
		Store:   object.NewStore(vcsDir),
		Logger:  discardLogger(),
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (r *Repo) lockPath() string {
	return filepath.Join(r.VcsDir, "index.lock")
}

// withLock runs fn while holding the repository lock. The lock is released
// on every return path, including when fn fails.
func (r *Repo) withLock(op string, fn func() error) (err error) {
	l, err := lock.Acquire(r.lockPath())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.Logger.WithField("op", op).Debug("repository lock acquired")
	defer func() {
		if relErr := l.Release(); relErr != nil && err == nil {
			err = fmt.Errorf("%s: %w", op, relErr)
		}
	}()
	return fn()
}

// writeFileAtomic writes data to a temp file in dir and renames it over
// path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte, pattern string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), pattern)
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
