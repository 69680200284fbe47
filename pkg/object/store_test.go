package object

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/odvcencio/vcs/pkg/vcserr"
)

func TestHashBytesDeterminism(t *testing.T) {
	data := []byte("hello world")
	h1 := HashBytes(data)
	h2 := HashBytes(data)
	if h1 != h2 {
		t.Errorf("HashBytes not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 40 {
		t.Errorf("Hash length: got %d, want 40", len(h1))
	}
}

func TestHashObjectKnownDigests(t *testing.T) {
	tests := []struct {
		objType ObjectType
		content string
		want    Hash
	}{
		{TypeBlob, "", "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
		{TypeBlob, "hello world\n", "3b18e512dba79e4c8300dd08aeb37f8e728b8dad"},
		{TypeTree, "", "4b825dc642cb6eb9a060e54bf8d69288fbee4904"},
	}
	for _, tc := range tests {
		if got := HashObject(tc.objType, []byte(tc.content)); got != tc.want {
			t.Errorf("HashObject(%s, %q) = %s, want %s", tc.objType, tc.content, got, tc.want)
		}
	}
}

func TestHashObjectEnvelope(t *testing.T) {
	data := []byte("hello")
	h1 := HashObject(TypeBlob, data)
	if h1 == HashBytes(data) {
		t.Error("HashObject should differ from HashBytes due to envelope")
	}
	if h1 == HashObject(TypeCommit, data) {
		t.Error("Different types should produce different hashes")
	}
}

func TestParseHash(t *testing.T) {
	if _, err := ParseHash(string(hashC)); err != nil {
		t.Fatalf("ParseHash(valid): %v", err)
	}
	for _, bad := range []string{"", "abc", strings.ToUpper(string(hashC)), string(hashC) + "0", strings.Repeat("g", 40)} {
		if _, err := ParseHash(bad); !vcserr.Is(err, vcserr.ErrInvalidInput) {
			t.Errorf("ParseHash(%q) error = %v, want invalid input", bad, err)
		}
	}
	if hashC.Short() != "01234567" {
		t.Errorf("Short = %q", hashC.Short())
	}
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestStoreWriteRead(t *testing.T) {
	s := tempStore(t)
	data := []byte("hello world")
	h, err := s.Write(&Blob{Data: data})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if h != HashObject(TypeBlob, data) {
		t.Errorf("Write hash = %s, want %s", h, HashObject(TypeBlob, data))
	}

	obj, err := s.Read(h)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if obj.Type() != TypeBlob {
		t.Errorf("Type: got %q, want %q", obj.Type(), TypeBlob)
	}
	if !bytes.Equal(obj.(*Blob).Data, data) {
		t.Errorf("Data: got %q, want %q", obj.(*Blob).Data, data)
	}
}

func TestStoreHas(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(&Blob{Data: []byte("exists")})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Has(h) {
		t.Error("Has returned false for existing object")
	}
	if s.Has(Hash(strings.Repeat("0", 40))) {
		t.Error("Has returned true for non-existing object")
	}
	if s.Has("../../etc") {
		t.Error("Has accepted a malformed hash")
	}
}

func TestStoreFanoutLayout(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(&Blob{Data: []byte("fanout test")})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	objPath := filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
	if _, err := os.Stat(objPath); err != nil {
		t.Errorf("Expected fan-out file at %s: %v", objPath, err)
	}
	if s.ObjectPath(h) != objPath {
		t.Errorf("ObjectPath = %s, want %s", s.ObjectPath(h), objPath)
	}
}

func TestStoreObjectPathShortHash(t *testing.T) {
	s := tempStore(t)
	for _, h := range []Hash{"", "a", "ab", "../x"} {
		p := s.ObjectPath(h)
		if !strings.HasPrefix(p, filepath.Join(s.root, "objects", "invalid")) {
			t.Errorf("ObjectPath(%q) = %s, want a path under objects/invalid", h, p)
		}
		if s.Has(h) {
			t.Errorf("Has(%q) = true", h)
		}
	}
}

func TestStoreObjectFormat(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(&Blob{Data: []byte("format check")})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(s.ObjectPath(h))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if want := "blob 12\x00format check"; string(raw) != want {
		t.Errorf("On-disk format: got %q, want %q", raw, want)
	}
	if HashBytes(raw) != h {
		t.Error("digest is not the hash of the stored bytes")
	}
}

func TestStoreDuplicateWrite(t *testing.T) {
	s := tempStore(t)
	blob := &Blob{Data: []byte("duplicate")}
	h1, err := s.Write(blob)
	if err != nil {
		t.Fatalf("Write 1: %v", err)
	}
	h2, err := s.Write(blob)
	if err != nil {
		t.Fatalf("Write 2: %v", err)
	}
	if h1 != h2 {
		t.Errorf("Same content produced different hashes: %q vs %q", h1, h2)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, "objects", string(h1[:2])))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("fan-out dir holds %d files after duplicate write, want 1", len(entries))
	}
}

func TestStoreReadMissing(t *testing.T) {
	s := tempStore(t)
	_, err := s.Read(Hash(strings.Repeat("0", 40)))
	if !vcserr.Is(err, vcserr.ErrNotFound) {
		t.Fatalf("Read missing error = %v, want not found", err)
	}
	_, err = s.Read("nothex")
	if !vcserr.Is(err, vcserr.ErrInvalidInput) {
		t.Fatalf("Read malformed error = %v, want invalid input", err)
	}
}

func TestStoreReadCorrupt(t *testing.T) {
	s := tempStore(t)
	h := Hash(strings.Repeat("1", 40))
	if err := os.MkdirAll(filepath.Dir(s.ObjectPath(h)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.ObjectPath(h), []byte("gizmo 1\x00x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(h); !vcserr.Is(err, vcserr.ErrCorrupt) {
		t.Fatalf("Read corrupt error = %v, want corrupt", err)
	}
}

func TestStoreWriteReadTree(t *testing.T) {
	s := tempStore(t)
	orig := &TreeObj{Entries: []TreeEntry{
		{Mode: TreeModeFile, Name: "main.go", Hash: hashA},
		{Mode: TreeModeDir, Name: "pkg", Hash: hashB},
	}}
	h, err := s.WriteTree(orig)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	got, err := s.ReadTree(h)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(got.Entries) != 2 || got.Entries[0] != orig.Entries[0] || got.Entries[1] != orig.Entries[1] {
		t.Errorf("Tree round-trip: got %+v", got.Entries)
	}
}

func TestStoreWriteReadCommit(t *testing.T) {
	s := tempStore(t)
	orig := &CommitObj{
		TreeHash:  hashA,
		Parent:    hashB,
		Author:    "Test User <test@example.com>",
		Timestamp: 1700000000,
		Message:   "test commit\n\nWith details.",
	}
	h, err := s.WriteCommit(orig)
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	got, err := s.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if *got != *orig {
		t.Errorf("Commit round-trip: got %+v, want %+v", *got, *orig)
	}
}

func TestStoreReadBlobTypeMismatch(t *testing.T) {
	s := tempStore(t)
	h, err := s.WriteTree(&TreeObj{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	_, err = s.ReadBlob(h)
	if !vcserr.Is(err, vcserr.ErrCorrupt) {
		t.Fatalf("ReadBlob on tree error = %v, want corrupt", err)
	}
	if !strings.Contains(err.Error(), "type mismatch") {
		t.Errorf("Expected type mismatch error, got: %v", err)
	}
}

func TestStoreVerify(t *testing.T) {
	s := tempStore(t)

	report, err := s.Verify()
	if err != nil {
		t.Fatalf("Verify(empty): %v", err)
	}
	if report.Objects != 0 {
		t.Errorf("empty store reported %d objects", report.Objects)
	}

	bh, err := s.WriteBlob(&Blob{Data: []byte("a")})
	if err != nil {
		t.Fatal(err)
	}
	th, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Mode: TreeModeFile, Name: "a", Hash: bh}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteCommit(&CommitObj{TreeHash: th, Author: "a", Timestamp: 1, Message: "m"}); err != nil {
		t.Fatal(err)
	}
	// A leftover temp file from an interrupted write is ignored.
	if err := os.WriteFile(filepath.Join(filepath.Dir(s.ObjectPath(bh)), ".tmp-123"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err = s.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Objects != 3 || report.Blobs != 1 || report.Trees != 1 || report.Commits != 1 {
		t.Errorf("report = %+v", report)
	}

	if err := os.WriteFile(s.ObjectPath(bh), []byte("blob 1\x00b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Verify(); !vcserr.Is(err, vcserr.ErrCorrupt) {
		t.Fatalf("Verify(tampered) error = %v, want corrupt", err)
	}
}

func TestReachableSet(t *testing.T) {
	s := tempStore(t)
	bh, _ := s.WriteBlob(&Blob{Data: []byte("x")})
	th, _ := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Mode: TreeModeFile, Name: "x", Hash: bh}}})
	c1, _ := s.WriteCommit(&CommitObj{TreeHash: th, Author: "a", Timestamp: 1, Message: "one"})
	c2, err := s.WriteCommit(&CommitObj{TreeHash: th, Parent: c1, Author: "a", Timestamp: 2, Message: "two"})
	if err != nil {
		t.Fatal(err)
	}

	set, err := s.ReachableSet([]Hash{c2, Hash(strings.Repeat("9", 40))})
	if err != nil {
		t.Fatalf("ReachableSet: %v", err)
	}
	for _, h := range []Hash{bh, th, c1, c2} {
		if _, ok := set[h]; !ok {
			t.Errorf("hash %s not reachable", h.Short())
		}
	}
	if len(set) != 4 {
		t.Errorf("reachable = %d objects, want 4", len(set))
	}

	dangling, _ := s.WriteCommit(&CommitObj{TreeHash: hashA, Author: "a", Timestamp: 3, Message: "broken"})
	if _, err := s.ReachableSet([]Hash{dangling}); !vcserr.Is(err, vcserr.ErrCorrupt) {
		t.Fatalf("ReachableSet(dangling) error = %v, want corrupt", err)
	}
}
