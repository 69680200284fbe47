package object

// Hash is a 40-character lowercase hex-encoded SHA-1 digest.
type Hash string

// HashSize is the width of a raw (binary) digest, as embedded in trees.
const HashSize = 20

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Object is one of *Blob, *TreeObj or *CommitObj.
type Object interface {
	Type() ObjectType
}

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Name is a single path segment.
type TreeEntry struct {
	Mode string
	Name string
	Hash Hash
}

// IsDir reports whether the entry references a subtree.
func (e TreeEntry) IsDir() bool { return e.Mode == TreeModeDir }

// TreeObj holds tree entries in the order they were built.
type TreeObj struct {
	Entries []TreeEntry
}

// CommitObj represents a commit pointing to a tree with metadata. An empty
// Parent marks the root commit.
type CommitObj struct {
	TreeHash  Hash
	Parent    Hash
	Author    string
	Timestamp int64
	Signature string
	Message   string
}

func (*Blob) Type() ObjectType      { return TypeBlob }
func (*TreeObj) Type() ObjectType   { return TypeTree }
func (*CommitObj) Type() ObjectType { return TypeCommit }
