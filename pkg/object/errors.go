package object

import "errors"

// ErrCorruption is wrapped into errors surfaced when an on-disk object
// fails its checksum or cannot be parsed — spec 7's Corruption kind
// (subkinds MalformedObject and ChecksumMismatch collapse to this one
// sentinel here; callers distinguish by inspecting the wrapped message,
// since Go's error tree has no first-class subkind taxonomy). DanglingHash
// has its own sentinel, ErrDanglingHash, below.
var ErrCorruption = errors.New("object: corruption detected")

// ErrDanglingHash indicates a hash referenced by a tree/commit/tag does not
// resolve to any stored object.
var ErrDanglingHash = errors.New("object: dangling hash")
