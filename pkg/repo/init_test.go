package repo

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

// Test 1: Init creates .vcs/ structure (HEAD, index, objects/, refs/heads/).
func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()

	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init(%q): %v", dir, err)
	}
	if r.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", r.RootDir, dir)
	}

	vcsDir := filepath.Join(dir, ".vcs")
	if r.VcsDir != vcsDir {
		t.Errorf("VcsDir = %q, want %q", r.VcsDir, vcsDir)
	}

	assertDir(t, vcsDir)
	assertFile(t, filepath.Join(vcsDir, "HEAD"))
	assertFile(t, filepath.Join(vcsDir, "index"))
	assertDir(t, filepath.Join(vcsDir, "objects"))
	assertDir(t, filepath.Join(vcsDir, "refs", "heads"))
	assertDir(t, filepath.Join(vcsDir, "logs", "refs", "heads"))

	if r.Store == nil {
		t.Error("Store is nil after Init")
	}
	if r.Logger == nil {
		t.Error("Logger is nil after Init")
	}
}

// Test 2: Init on existing repo returns an invalid-input error.
func TestInit_ExistingRepo_Error(t *testing.T) {
	dir := t.TempDir()

	if _, err := Init(dir); err != nil {
		t.Fatalf("first Init: %v", err)
	}

	_, err := Init(dir)
	if err == nil {
		t.Fatal("second Init should fail on existing repo, got nil error")
	}
	if !vcserr.Is(err, vcserr.ErrInvalidInput) {
		t.Fatalf("second Init error category = %v, want %v", vcserr.Category(err), vcserr.ErrInvalidInput)
	}
}

// Test 3: Open finds .vcs/ from subdirectory.
func TestOpen_FromSubdirectory(t *testing.T) {
	dir := t.TempDir()

	if _, err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}

	sub := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	r, err := Open(sub)
	if err != nil {
		t.Fatalf("Open(%q): %v", sub, err)
	}
	if r.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", r.RootDir, dir)
	}
	if r.VcsDir != filepath.Join(dir, ".vcs") {
		t.Errorf("VcsDir = %q, want %q", r.VcsDir, filepath.Join(dir, ".vcs"))
	}
	if r.Store == nil {
		t.Error("Store is nil after Open")
	}
}

// Test 4: Open in non-repo directory returns not-found.
func TestOpen_NoRepo_Error(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(dir)
	if err == nil {
		t.Fatal("Open should fail in non-repo directory, got nil error")
	}
	if !vcserr.Is(err, vcserr.ErrNotFound) {
		t.Fatalf("Open error category = %v, want %v", vcserr.Category(err), vcserr.ErrNotFound)
	}
	if !strings.Contains(err.Error(), "not a vcs repository") {
		t.Errorf("Open error = %q, want mention of a missing repository", err)
	}
}

// Test 5: HEAD defaults to "ref: refs/heads/master" with no commits.
func TestInit_HeadDefault(t *testing.T) {
	r := initRepo(t)

	ref, err := r.Head()
	if err != nil {
		t.Fatalf("Head(): %v", err)
	}
	if ref != "refs/heads/master" {
		t.Errorf("Head() = %q, want %q", ref, "refs/heads/master")
	}

	branch, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != DefaultBranch {
		t.Errorf("CurrentBranch = %q, want %q", branch, DefaultBranch)
	}

	_, ok, err := r.ResolveHead()
	if err != nil {
		t.Fatalf("ResolveHead: %v", err)
	}
	if ok {
		t.Error("ResolveHead reported a commit in a fresh repository")
	}
}

// Test 6: the fresh index is an empty list.
func TestInit_EmptyIndex(t *testing.T) {
	r := initRepo(t)

	data, err := os.ReadFile(filepath.Join(r.VcsDir, "index"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("index = %q, want %q", data, "[]")
	}
	ix, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(ix.Entries) != 0 {
		t.Errorf("fresh index has %d entries", len(ix.Entries))
	}
}

// Test 7: a corrupt HEAD symbolic ref is reported as corruption.
func TestHead_InvalidSymbolicRef(t *testing.T) {
	r := initRepo(t)

	if err := os.WriteFile(filepath.Join(r.VcsDir, "HEAD"), []byte("ref: heads/../x\n"), 0o644); err != nil {
		t.Fatalf("write HEAD: %v", err)
	}
	_, err := r.Head()
	if !vcserr.Is(err, vcserr.ErrCorrupt) {
		t.Fatalf("Head error = %v, want corrupt", err)
	}
}

// helpers

func initRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r
}

func writeWorkFile(t *testing.T, r *Repo, rel, content string) {
	t.Helper()
	p := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func mustAdd(t *testing.T, r *Repo, paths ...string) []string {
	t.Helper()
	added, err := r.Add(paths)
	if err != nil {
		t.Fatalf("Add(%v): %v", paths, err)
	}
	return added
}

func mustCommit(t *testing.T, r *Repo, message string) object.Hash {
	t.Helper()
	h, err := r.Commit(message, "Test User <test@example.com>")
	if err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
	return h
}

func mustStatus(t *testing.T, r *Repo) *Status {
	t.Helper()
	st, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	return st
}

func assertStrings(t *testing.T, label string, got []string, want ...string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s = %v, want %v", label, got, want)
	}
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected directory %q to exist: %v", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("%q exists but is not a directory", path)
	}
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected file %q to exist: %v", path, err)
		return
	}
	if info.IsDir() {
		t.Errorf("%q exists but is a directory, expected file", path)
	}
}
