package repo

import (
	"os"
	"path/filepath"
	"testing"
)

// Test 1: Fresh repository — nothing to report.
func TestStatus_EmptyRepository(t *testing.T) {
	r := initRepo(t)

	st := mustStatus(t, r)
	if st.Branch != "master" {
		t.Errorf("Branch = %q, want master", st.Branch)
	}
	if st.HasCommits {
		t.Error("HasCommits = true in a fresh repository")
	}
	if !st.IsClean() {
		t.Errorf("fresh repository not clean: %+v", st)
	}
}

// Test 2: Untracked file — create file without adding.
func TestStatus_Untracked(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "notes.txt", "some data\n")
	writeWorkFile(t, r, "dir/inner.txt", "inner\n")

	st := mustStatus(t, r)
	assertStrings(t, "Untracked", st.Untracked, "dir/inner.txt", "notes.txt")
	if st.HasStaged() {
		t.Errorf("unexpected staged changes: %+v", st)
	}
}

// Test 3: Staged new file, working copy unchanged.
func TestStatus_StagedNew(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "main.go", "package main\n")
	mustAdd(t, r, "main.go")

	st := mustStatus(t, r)
	assertStrings(t, "StagedNew", st.StagedNew, "main.go")
	assertStrings(t, "Modified", st.Modified)
	assertStrings(t, "Untracked", st.Untracked)
}

// Test 4: Clean after commit.
func TestStatus_CleanAfterCommit(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	mustAdd(t, r, "a.txt")
	mustCommit(t, r, "first")

	st := mustStatus(t, r)
	if !st.HasCommits {
		t.Error("HasCommits = false after commit")
	}
	if !st.IsClean() {
		t.Errorf("status after commit not clean: %+v", st)
	}
}

// Test 5: Editing a committed file reports it as modified and nothing else.
func TestStatus_ModifiedAfterCommit(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	mustAdd(t, r, "a.txt")
	mustCommit(t, r, "first")

	writeWorkFile(t, r, "a.txt", "bye")

	st := mustStatus(t, r)
	assertStrings(t, "Modified", st.Modified, "a.txt")
	assertStrings(t, "StagedNew", st.StagedNew)
	assertStrings(t, "StagedModified", st.StagedModified)
	assertStrings(t, "StagedDeleted", st.StagedDeleted)
	assertStrings(t, "Deleted", st.Deleted)
	assertStrings(t, "Untracked", st.Untracked)
}

// Test 6: Staging the edit moves it to StagedModified; a further edit also
// shows in Modified.
func TestStatus_StagedModifiedThenEditedAgain(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	mustAdd(t, r, "a.txt")
	mustCommit(t, r, "first")

	writeWorkFile(t, r, "a.txt", "bye")
	mustAdd(t, r, "a.txt")

	st := mustStatus(t, r)
	assertStrings(t, "StagedModified", st.StagedModified, "a.txt")
	assertStrings(t, "Modified", st.Modified)

	writeWorkFile(t, r, "a.txt", "again")
	st = mustStatus(t, r)
	assertStrings(t, "StagedModified", st.StagedModified, "a.txt")
	assertStrings(t, "Modified", st.Modified, "a.txt")
}

// Test 7: Staging unchanged content of a committed file is not a change.
func TestStatus_RestagedIdenticalContentIsClean(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	mustAdd(t, r, "a.txt")
	mustCommit(t, r, "first")
	mustAdd(t, r, "a.txt")

	st := mustStatus(t, r)
	if !st.IsClean() {
		t.Errorf("restaged identical file not clean: %+v", st)
	}
}

// Test 8: Removing a committed file from disk reports it as deleted.
func TestStatus_DeletedFromWorkingTree(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	writeWorkFile(t, r, "b.txt", "keep")
	mustAdd(t, r, "a.txt", "b.txt")
	mustCommit(t, r, "first")

	if err := os.Remove(filepath.Join(r.RootDir, "a.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	st := mustStatus(t, r)
	assertStrings(t, "Deleted", st.Deleted, "a.txt")
	assertStrings(t, "Modified", st.Modified)
	if st.HasStaged() {
		t.Errorf("unexpected staged changes: %+v", st)
	}
}

// Test 9: Adding a committed path that is gone from disk stages its removal.
func TestStatus_StagedDeleted(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	mustAdd(t, r, "a.txt")
	mustCommit(t, r, "first")

	if err := os.Remove(filepath.Join(r.RootDir, "a.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	mustAdd(t, r, "a.txt")

	st := mustStatus(t, r)
	assertStrings(t, "StagedDeleted", st.StagedDeleted, "a.txt")
	assertStrings(t, "Deleted", st.Deleted)
}

// Test 9b: Staged content survives a later delete from disk; the commit
// would still record it.
func TestStatus_StagedThenDeletedFromDisk(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "same.txt", "s")
	writeWorkFile(t, r, "edit.txt", "e1")
	mustAdd(t, r, ".")
	mustCommit(t, r, "first")

	mustAdd(t, r, "same.txt")
	writeWorkFile(t, r, "edit.txt", "e2")
	mustAdd(t, r, "edit.txt")
	for _, p := range []string{"same.txt", "edit.txt"} {
		if err := os.Remove(filepath.Join(r.RootDir, p)); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}

	st := mustStatus(t, r)
	assertStrings(t, "StagedDeleted", st.StagedDeleted)
	assertStrings(t, "StagedModified", st.StagedModified, "edit.txt")
	assertStrings(t, "Deleted", st.Deleted, "edit.txt", "same.txt")
}

// Test 9c: rm --cached leaves the file on disk as untracked.
func TestStatus_RemovedCachedIsUntracked(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	mustAdd(t, r, "a.txt")
	mustCommit(t, r, "first")

	if _, err := r.Remove([]string{"a.txt"}, true); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	st := mustStatus(t, r)
	assertStrings(t, "StagedDeleted", st.StagedDeleted, "a.txt")
	assertStrings(t, "Untracked", st.Untracked, "a.txt")
	assertStrings(t, "Modified", st.Modified)
}

// Test 10: Staged as new, then removed from disk.
func TestStatus_StagedNewThenDeleted(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "gone.txt", "soon gone")
	mustAdd(t, r, "gone.txt")

	if err := os.Remove(filepath.Join(r.RootDir, "gone.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	st := mustStatus(t, r)
	assertStrings(t, "StagedNew", st.StagedNew, "gone.txt")
	assertStrings(t, "Deleted", st.Deleted, "gone.txt")
}

// Test 11: CRLF working copy of an LF-committed file is clean.
func TestStatus_LineEndingsNormalized(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "one\ntwo\n")
	mustAdd(t, r, "a.txt")
	mustCommit(t, r, "first")

	writeWorkFile(t, r, "a.txt", "one\r\ntwo\r\n")

	st := mustStatus(t, r)
	if !st.IsClean() {
		t.Errorf("CRLF rewrite reported as change: %+v", st)
	}
}

// Test 12: Ignored files are not reported as untracked.
func TestStatus_IgnoredFilesHidden(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, ".vcsignore", "*.log\ntmp/\n")
	writeWorkFile(t, r, "debug.log", "x")
	writeWorkFile(t, r, "tmp/cache.bin", "x")
	writeWorkFile(t, r, "keep.txt", "x")

	st := mustStatus(t, r)
	assertStrings(t, "Untracked", st.Untracked, ".vcsignore", "keep.txt")
}

// Test 13: Status writes nothing to the object store or the index.
func TestStatus_ReadOnly(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	writeWorkFile(t, r, "b.txt", "untracked content")
	mustAdd(t, r, "a.txt")

	before, err := r.Store.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	indexBefore, err := os.ReadFile(filepath.Join(r.VcsDir, "index"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}

	mustStatus(t, r)

	after, err := r.Store.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if after.Objects != before.Objects {
		t.Errorf("object count changed from %d to %d", before.Objects, after.Objects)
	}
	indexAfter, err := os.ReadFile(filepath.Join(r.VcsDir, "index"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if string(indexAfter) != string(indexBefore) {
		t.Error("Status rewrote the index")
	}
}

// Test 14: Every path in the union of disk, index and HEAD is classified
// consistently: at most one staged list and at most one unstaged list.
func TestStatus_EveryPathClassifiedOnce(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "clean.txt", "c")
	writeWorkFile(t, r, "mod.txt", "m1")
	writeWorkFile(t, r, "del.txt", "d")
	writeWorkFile(t, r, "staged.txt", "s1")
	mustAdd(t, r, ".")
	mustCommit(t, r, "base")

	writeWorkFile(t, r, "mod.txt", "m2")
	if err := os.Remove(filepath.Join(r.RootDir, "del.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	writeWorkFile(t, r, "staged.txt", "s2")
	mustAdd(t, r, "staged.txt")
	writeWorkFile(t, r, "new.txt", "n")
	mustAdd(t, r, "new.txt")
	writeWorkFile(t, r, "loose.txt", "u")

	st := mustStatus(t, r)

	staged := map[string]int{}
	for _, l := range [][]string{st.StagedNew, st.StagedModified, st.StagedDeleted} {
		for _, p := range l {
			staged[p]++
		}
	}
	unstaged := map[string]int{}
	for _, l := range [][]string{st.Modified, st.Deleted, st.Untracked} {
		for _, p := range l {
			unstaged[p]++
		}
	}
	for p, n := range staged {
		if n > 1 {
			t.Errorf("%s appears in %d staged lists", p, n)
		}
	}
	for p, n := range unstaged {
		if n > 1 {
			t.Errorf("%s appears in %d unstaged lists", p, n)
		}
	}

	assertStrings(t, "StagedNew", st.StagedNew, "new.txt")
	assertStrings(t, "StagedModified", st.StagedModified, "staged.txt")
	assertStrings(t, "Modified", st.Modified, "mod.txt")
	assertStrings(t, "Deleted", st.Deleted, "del.txt")
	assertStrings(t, "Untracked", st.Untracked, "loose.txt")
	if staged["clean.txt"]+unstaged["clean.txt"] != 0 {
		t.Error("clean.txt reported as changed")
	}
}

// Test 15: a detached HEAD has no branch name.
func TestStatus_DetachedHead(t *testing.T) {
	r := initRepo(t)
	writeWorkFile(t, r, "a.txt", "hi")
	mustAdd(t, r, "a.txt")
	h := mustCommit(t, r, "first")

	if err := os.WriteFile(filepath.Join(r.VcsDir, "HEAD"), []byte(string(h)+"\n"), 0o644); err != nil {
		t.Fatalf("write HEAD: %v", err)
	}
	st := mustStatus(t, r)
	if st.Branch != "" {
		t.Errorf("Branch = %q, want empty for detached HEAD", st.Branch)
	}
	if !st.HasCommits || !st.IsClean() {
		t.Errorf("detached status = %+v, want clean with commits", st)
	}
}
