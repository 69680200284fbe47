//go:build !unix

package lock

import (
	"errors"
	"os"
	"sync"
)

// Platforms without flock fall back to an in-process registry keyed by lock
// path plus an exclusive marker file next to the lock file.
var errWouldBlock = errors.New("lock would block")

var (
	heldMu sync.Mutex
	held   = make(map[string]*os.File)
)

func tryLock(f *os.File) error {
	marker := f.Name() + ".held"
	m, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errWouldBlock
		}
		return err
	}
	heldMu.Lock()
	held[f.Name()] = m
	heldMu.Unlock()
	return nil
}

func unlock(f *os.File) error {
	heldMu.Lock()
	m, ok := held[f.Name()]
	delete(held, f.Name())
	heldMu.Unlock()
	if !ok {
		return nil
	}
	m.Close()
	return os.Remove(m.Name())
}
