package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

// ErrRefUpdatedButReflogAppendFailed marks a ref update whose ref file was
// written but whose reflog line was not.
var ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}

// Head reads .vcs/HEAD. If the content starts with "ref: ", it returns the
// ref path (e.g., "refs/heads/master"). Otherwise it returns the raw content
// as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.VcsDir, "HEAD"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", vcserr.Errorf(vcserr.ErrNotFound, "head: HEAD is missing")
		}
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimSpace(string(data))

	if strings.HasPrefix(content, "ref: ") {
		ref := strings.TrimSpace(strings.TrimPrefix(content, "ref: "))
		if !validRefName(ref) {
			return "", vcserr.Errorf(vcserr.ErrCorrupt, "head: invalid symbolic ref %q", ref)
		}
		return ref, nil
	}
	return content, nil
}

// CurrentBranch returns the branch name HEAD points at, or "" when HEAD
// holds a commit hash directly.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(head, "refs/heads/") {
		return strings.TrimPrefix(head, "refs/heads/"), nil
	}
	return "", nil
}

// ResolveHead resolves HEAD to a commit hash. The boolean is false when no
// commit exists yet: HEAD names a ref file that has not been written.
func (r *Repo) ResolveHead() (object.Hash, bool, error) {
	head, err := r.Head()
	if err != nil {
		return "", false, err
	}
	if !strings.HasPrefix(head, "refs/") {
		h, err := object.ParseHash(head)
		if err != nil {
			return "", false, vcserr.Errorf(vcserr.ErrCorrupt, "resolve HEAD: detached HEAD holds %q", head)
		}
		return h, true, nil
	}

	h, err := readRefHash(filepath.Join(r.VcsDir, filepath.FromSlash(head)))
	if err != nil {
		return "", false, fmt.Errorf("resolve HEAD: %w", err)
	}
	if h == "" {
		return "", false, nil
	}
	return h, true, nil
}

// headRefName is the ref file a HEAD update writes: the symbolic target, or
// HEAD itself when detached.
func (r *Repo) headRefName() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(head, "refs/") {
		return head, nil
	}
	return "HEAD", nil
}

// SetHead advances the history pointer to h. When HEAD is symbolic the
// named ref file is rewritten; otherwise HEAD itself is.
func (r *Repo) SetHead(h object.Hash, reason string) error {
	name, err := r.headRefName()
	if err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	return r.UpdateRefCAS(name, h, reason)
}

// UpdateRefCAS writes a hash to the named ref file under .vcs/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it; an empty
// expectedOld asserts that the ref does not exist yet.
//
// Reflog append happens after the ref rename; if reflog append fails, the ref
// update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, reason string, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return vcserr.Errorf(vcserr.ErrInvalidInput, "update ref %q: expected at most one old hash", name)
	}
	if name != "HEAD" && !validRefName(name) {
		return vcserr.Errorf(vcserr.ErrInvalidInput, "update ref %q: invalid ref name", name)
	}
	if _, err := object.ParseHash(string(h)); err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}

	refPath := filepath.Join(r.VcsDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return vcserr.Errorf(vcserr.ErrConflict, "update ref %q: %s is held by another update", name, lockPath)
		}
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if len(expectedOld) == 1 && oldHash != expectedOld[0] {
		return vcserr.Errorf(vcserr.ErrConflict,
			"update ref %q: compare-and-swap mismatch (expected %s, found %s)",
			name, displayHash(expectedOld[0]), displayHash(oldHash))
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	r.Logger.WithFields(logrus.Fields{"ref": name, "old": displayHash(oldHash), "new": h}).Debug("ref updated")

	if err := r.appendReflog(name, oldHash, h, reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}
	return nil
}

// readRefHash returns the hash stored in a ref file, or "" if the file does
// not exist.
func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	content := strings.TrimSpace(string(data))
	h, err := object.ParseHash(content)
	if err != nil {
		return "", vcserr.Errorf(vcserr.ErrCorrupt, "ref file %s holds %q", filepath.Base(refPath), content)
	}
	return h, nil
}

func validRefName(name string) bool {
	if !strings.HasPrefix(name, "refs/") || strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".lock") {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return !strings.ContainsAny(name, " \t\n\\\x00")
}

func displayHash(h object.Hash) string {
	if h == "" {
		return "(none)"
	}
	return string(h)
}

// ListRefs lists references under .vcs/refs.
// Names are returned relative to .vcs, e.g. "refs/heads/master".
func (r *Repo) ListRefs() (map[string]object.Hash, error) {
	root := filepath.Join(r.VcsDir, "refs")

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}

		rel, err := filepath.Rel(r.VcsDir, path)
		if err != nil {
			return err
		}
		h, err := readRefHash(path)
		if err != nil {
			return err
		}
		refs[filepath.ToSlash(rel)] = h
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}
