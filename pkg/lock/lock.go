// Package lock provides the advisory, non-blocking, process-exclusive lock
// that serializes repository-mutating operations.
package lock

import (
	"fmt"
	"os"

	"github.com/odvcencio/vcs/pkg/vcserr"
)

// Lock is a held exclusive lock on a lock file. The zero value is not usable;
// obtain one with Acquire.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the exclusive lock at path without waiting. If another
// process holds it, an ErrConflict error is returned immediately.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lock %s: open: %w", path, err)
	}

	if err := tryLock(f); err != nil {
		f.Close()
		if err == errWouldBlock {
			return nil, lockedError(path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	// A previous holder may have removed the file between our open and our
	// lock; in that case we locked an orphaned inode and must not proceed.
	held, err := f.Stat()
	if err != nil {
		unlock(f)
		f.Close()
		return nil, fmt.Errorf("lock %s: stat: %w", path, err)
	}
	onDisk, err := os.Stat(path)
	if err != nil || !os.SameFile(held, onDisk) {
		unlock(f)
		f.Close()
		return nil, lockedError(path)
	}

	return &Lock{path: path, file: f}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks and removes the lock file. It is safe to call more than
// once; only the first call has any effect.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	// Remove while still holding the lock so no other process can lock the
	// inode we are about to abandon.
	rmErr := os.Remove(l.path)
	unlockErr := unlock(f)
	closeErr := f.Close()

	switch {
	case rmErr != nil && !os.IsNotExist(rmErr):
		return fmt.Errorf("unlock %s: remove: %w", l.path, rmErr)
	case unlockErr != nil:
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	case closeErr != nil:
		return fmt.Errorf("unlock %s: close: %w", l.path, closeErr)
	}
	return nil
}

func lockedError(path string) error {
	return vcserr.Errorf(vcserr.ErrConflict,
		"repository is locked: another vcs process may be running; if none is, delete %s and try again", path)
}
