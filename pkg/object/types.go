// Package object implements the content-addressed object store: hashing,
// canonical serialization of blobs/trees/commits/tags, and the loose +
// pack-backed storage backends.
package object

// Hash is a lowercase hex-encoded SHA-256 digest identifying an object.
type Hash string

// ObjectType names the kind of an object's content.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

// Tree entry modes, matching Git's own mode strings so import/export stays
// byte-compatible with foreign trees.
const (
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
	ModeDir        = "40000"
)

// Blob is an opaque byte sequence addressed by the hash of its content.
type Blob struct {
	Data []byte
}

// TreeEntry is one row of a directory snapshot: a name paired with a mode
// and the hash of the child blob or tree.
type TreeEntry struct {
	Name string
	Mode string
	Hash Hash
}

// IsDir reports whether the entry names a subtree rather than a blob.
func (e TreeEntry) IsDir() bool { return e.Mode == ModeDir }

// Tree is a directory snapshot: entries sorted by name whose serialization
// deterministically produces the tree's own hash.
type Tree struct {
	Entries []TreeEntry
}

// Identity is an author or committer attribution.
type Identity struct {
	Name      string
	Email     string
	Timestamp int64  // seconds since epoch
	TZOffset  string // "+HHMM" / "-HHMM"
}

// CommitRecord is an immutable node in the commit graph.
type CommitRecord struct {
	TreeHash  Hash
	Parents   []Hash // 0 (root), 1, or 2 (merge), order preserved
	Author    Identity
	Committer Identity
	Message   string
	Signature string // optional, excluded from the signed payload itself
}

// TagObj is the object payload of an annotated tag (see DESIGN.md's Open
// Question decision: annotated tags are stored as their own object).
type TagObj struct {
	Target     Hash
	TargetType ObjectType
	Name       string
	Tagger     Identity
	Message    string
}
