package object

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/vcs/pkg/vcserr"
)

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// Objects are immutable: a write whose digest already exists on disk is a
// no-op, so concurrent writers of the same content are harmless.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// ObjectPath returns the filesystem path for a given hash. A string that is
// not a full hash (see ParseHash) maps to a path under objects/invalid that
// never holds an object.
func (s *Store) ObjectPath(h Hash) string {
	if _, err := ParseHash(string(h)); err != nil {
		return filepath.Join(s.root, "objects", "invalid", hex.EncodeToString([]byte(h)))
	}
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if _, err := ParseHash(string(h)); err != nil {
		return false
	}
	_, err := os.Stat(s.ObjectPath(h))
	return err == nil
}

// Write serializes obj, stores it and returns its content hash. Data is
// written to a temp file in the fan-out directory and renamed into place.
func (s *Store) Write(obj Object) (Hash, error) {
	raw, err := Serialize(obj)
	if err != nil {
		return "", fmt.Errorf("object write: %w", err)
	}
	h := HashBytes(raw)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}

	if err := os.Rename(tmpName, s.ObjectPath(h)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}
	return h, nil
}

// Read loads and decodes the object with the given hash.
func (s *Store) Read(h Hash) (Object, error) {
	if _, err := ParseHash(string(h)); err != nil {
		return nil, fmt.Errorf("object read: %w", err)
	}
	raw, err := os.ReadFile(s.ObjectPath(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, vcserr.Errorf(vcserr.ErrNotFound, "object %s not found", h)
		}
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	obj, err := Deserialize(raw)
	if err != nil {
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	return obj, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) { return s.Write(b) }

// WriteTree stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) { return s.Write(tr) }

// WriteCommit stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) { return s.Write(c) }

// ReadBlob reads an object that must be a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	obj, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	b, ok := obj.(*Blob)
	if !ok {
		return nil, typeMismatch(h, obj, TypeBlob)
	}
	return b, nil
}

// ReadTree reads an object that must be a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	obj, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	tr, ok := obj.(*TreeObj)
	if !ok {
		return nil, typeMismatch(h, obj, TypeTree)
	}
	return tr, nil
}

// ReadCommit reads an object that must be a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	obj, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(*CommitObj)
	if !ok {
		return nil, typeMismatch(h, obj, TypeCommit)
	}
	return c, nil
}

func typeMismatch(h Hash, got Object, want ObjectType) error {
	return vcserr.Errorf(vcserr.ErrCorrupt, "object %s: type mismatch: got %q, want %q", h, got.Type(), want)
}

// ---------------------------------------------------------------------------
// Verification
// ---------------------------------------------------------------------------

// VerifyReport summarizes a successful Verify pass.
type VerifyReport struct {
	Objects int
	Blobs   int
	Trees   int
	Commits int
}

// Verify rehashes and decodes every object in the store. The first object
// whose bytes do not hash to its file name, or that fails to decode, is
// reported as ErrCorrupt. Stray temp files from interrupted writes are
// skipped.
func (s *Store) Verify() (*VerifyReport, error) {
	report := &VerifyReport{}
	objectsDir := filepath.Join(s.root, "objects")

	var paths []string
	err := filepath.WalkDir(objectsDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return report, nil
		}
		return nil, fmt.Errorf("verify: walk: %w", err)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rel, err := filepath.Rel(objectsDir, p)
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		want := Hash(strings.ReplaceAll(filepath.ToSlash(rel), "/", ""))

		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", want, err)
		}
		if got := HashBytes(raw); got != want {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "verify: object %s hashes to %s", want, got)
		}
		obj, err := Deserialize(raw)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", want, err)
		}

		report.Objects++
		switch obj.(type) {
		case *Blob:
			report.Blobs++
		case *TreeObj:
			report.Trees++
		case *CommitObj:
			report.Commits++
		}
	}
	return report, nil
}
