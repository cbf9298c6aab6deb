// Package index implements spec 4.D: the staging map path→{hash,mode} with
// path validation, persisted as a single serialized value in the catalog's
// INDEX partition. Grounded on the teacher's pkg/repo/staging.go (Staging,
// StagingEntry, ReadStaging/WriteStaging) generalized from a bespoke
// .got/index file to a catalog-backed value, and pkg/repo/tree.go
// (BuildTree/FlattenTree) for the tree-construction half.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/object"
)

// ErrInvalidPath is returned when an index path violates invariant 5 (no
// `..` components, no absolute prefix, no null bytes, bounded depth/size).
var ErrInvalidPath = errors.New("index: invalid path")

const (
	maxPathDepth = 256
	maxPathBytes = 4096
)

// indexKey is the single catalog key the whole staging map is stored under.
// A real multi-key INDEX partition buys nothing here: every read of the
// index wants the whole map (entries(), find(prefix), BuildTree all
// enumerate it), so one JSON blob avoids N catalog round trips for what is
// a single logical document anyway.
const indexKey = "staging"

// Entry is one staged file. Conflict is non-nil only while a merge,
// cherry-pick, or rebase has left this path unresolved (pkg/vcsmerge is the
// only writer of that field) — it fills the StagingEntry field gap the
// teacher's merge.go/status.go/reset.go assumed existed but staging.go never
// declared.
type Entry struct {
	Path        string        `json:"path"`
	BlobHash    object.Hash   `json:"blob_hash"`
	Mode        string        `json:"mode"`
	Size        int64         `json:"size"`
	MTime       int64         `json:"mtime,omitempty"`
	Conflict    *ConflictInfo `json:"conflict,omitempty"`
	RenamedFrom string        `json:"renamed_from,omitempty"`
}

// ConflictInfo records the three-way blob hashes for an unresolved path. A
// nil field means that side had no file (e.g. add/add vs delete/modify).
type ConflictInfo struct {
	BaseBlobHash   object.Hash `json:"base_blob_hash,omitempty"`
	OursBlobHash   object.Hash `json:"ours_blob_hash,omitempty"`
	TheirsBlobHash object.Hash `json:"theirs_blob_hash,omitempty"`
}

// Index is the in-memory staging map, loaded from and flushed to the
// catalog's INDEX partition as a single document.
type Index struct {
	cat     *catalog.Catalog
	objects *object.Store
	entries map[string]*Entry
}

// Open loads the staging map from the catalog, or returns an empty one if
// none has been written yet.
func Open(cat *catalog.Catalog, objects *object.Store) (*Index, error) {
	idx := &Index{cat: cat, objects: objects, entries: make(map[string]*Entry)}
	data, ok, err := cat.Get(catalog.INDEX, indexKey)
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	if !ok {
		return idx, nil
	}
	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("index: open: %w: %v", object.ErrCorruption, err)
	}
	for _, e := range entries {
		idx.entries[e.Path] = e
	}
	return idx, nil
}

// Flush persists the current staging map as a single catalog value.
func (idx *Index) Flush() error {
	entries := idx.Entries()
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("index: flush: marshal: %w", err)
	}
	if err := idx.cat.Set(catalog.INDEX, indexKey, data); err != nil {
		return fmt.Errorf("index: flush: %w", err)
	}
	return nil
}

// validatePath enforces invariant 5: normalized forward-slash path, no `..`
// components, no absolute prefix, no null bytes, bounded depth and size.
func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if len(p) > maxPathBytes {
		return fmt.Errorf("%w: %q exceeds max length", ErrInvalidPath, p)
	}
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("%w: %q contains a null byte", ErrInvalidPath, p)
	}
	if path.IsAbs(p) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidPath, p)
	}
	segments := strings.Split(p, "/")
	if len(segments) > maxPathDepth {
		return fmt.Errorf("%w: %q exceeds max depth", ErrInvalidPath, p)
	}
	for _, seg := range segments {
		if seg == "" || seg == "." {
			return fmt.Errorf("%w: %q has an empty or `.` component", ErrInvalidPath, p)
		}
		if seg == ".." {
			return fmt.Errorf("%w: %q contains `..`", ErrInvalidPath, p)
		}
	}
	return nil
}

// Put computes the blob hash for content, writes it to the object store,
// and records or overwrites the IndexEntry at p. This is the shared core of
// the public `add` operation — callers resolve a directory into its
// constituent file paths before calling Put per file.
func (idx *Index) Put(p string, content []byte, mode string) (*Entry, error) {
	if err := validatePath(p); err != nil {
		return nil, err
	}
	h, err := idx.objects.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return nil, fmt.Errorf("index: add %q: %w", p, err)
	}
	e := &Entry{Path: p, BlobHash: h, Mode: mode, Size: int64(len(content))}
	idx.entries[p] = e
	return e, nil
}

// PutEntry records an already-resolved entry verbatim (used when restaging
// from a tree during checkout/reset, or writing conflict stages during a
// merge) without re-hashing content that's already in the object store.
func (idx *Index) PutEntry(e *Entry) error {
	if err := validatePath(e.Path); err != nil {
		return err
	}
	if !idx.objects.Has(e.BlobHash) {
		return fmt.Errorf("index: put %q: %w: %s", e.Path, object.ErrDanglingHash, e.BlobHash)
	}
	idx.entries[e.Path] = e
	return nil
}

// Remove deletes the entry at p, if present.
func (idx *Index) Remove(p string) {
	delete(idx.entries, p)
}

// Move renames a staged path, preserving its blob hash and mode and
// recording the source path so status() can report it as Renamed (spec
// 4.G: rename detection is opportunistic and only fires for an explicit
// mv through this entry point, never a content-matching heuristic).
func (idx *Index) Move(from, to string) error {
	if err := validatePath(to); err != nil {
		return err
	}
	e, ok := idx.entries[from]
	if !ok {
		return fmt.Errorf("index: move %q: not staged", from)
	}
	moved := *e
	moved.Path = to
	moved.RenamedFrom = from
	delete(idx.entries, from)
	idx.entries[to] = &moved
	return nil
}

// Get returns the entry at p, if present.
func (idx *Index) Get(p string) (*Entry, bool) {
	e, ok := idx.entries[p]
	return e, ok
}

// Entries returns every entry sorted by path.
func (idx *Index) Entries() []*Entry {
	out := make([]*Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Find returns every entry whose path starts with prefix, sorted by path.
func (idx *Index) Find(prefix string) []*Entry {
	var out []*Entry
	for _, e := range idx.Entries() {
		if strings.HasPrefix(e.Path, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// Clear empties the staging map. Callers restage the index from a tree with
// it (worktree.CheckoutTree, the merge engine's materialize and reset
// --mixed, stash); commit leaves the index as it is.
func (idx *Index) Clear() {
	idx.entries = make(map[string]*Entry)
}

// HasConflicts reports whether any staged path still carries unresolved
// conflict state.
func (idx *Index) HasConflicts() bool {
	for _, e := range idx.entries {
		if e.Conflict != nil {
			return true
		}
	}
	return false
}
