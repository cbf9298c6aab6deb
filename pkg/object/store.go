package object

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/glyphvcs/glyph/pkg/codec"
)

// PackBackend is the read-only capability a pack file exposes to the object
// store (spec design note: "a loose-file backend and a pack-file backend
// implement [put,get,has,iter]; readers try loose first, then packs, by
// hash"). pkg/pack.Reader satisfies this without pkg/object importing it.
type PackBackend interface {
	Has(h Hash) bool
	Get(h Hash) (ObjectType, []byte, error)
}

// Store is the flat content-addressed object store (spec 4.B). It holds
// blobs, trees, and (per DESIGN.md's Open Question decision) annotated tag
// objects. Commits are not stored here — spec's data model keeps commit
// records in the catalog's COMMITS partition (see pkg/commitgraph).
type Store struct {
	root         string // .../objects
	packBackends []PackBackend
}

// NewStore opens (creating if necessary) the loose object store rooted at
// dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("object store: mkdir %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// AddPackBackend registers a read-only pack source consulted after a loose
// miss, in registration order.
func (s *Store) AddPackBackend(pb PackBackend) {
	s.packBackends = append(s.packBackends, pb)
}

func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, string(h[:2]), string(h[2:]))
}

// Has reports whether h is resolvable via the loose store or any pack.
func (s *Store) Has(h Hash) bool {
	if _, err := os.Stat(s.objectPath(h)); err == nil {
		return true
	}
	for _, pb := range s.packBackends {
		if pb.Has(h) {
			return true
		}
	}
	return false
}

// Write stores data under the given object type, returning its hash.
// Idempotent: an object already present is not rewritten (spec P6).
func (s *Store) Write(t ObjectType, data []byte) (Hash, error) {
	h := HashObject(t, data)
	if s.Has(h) {
		return h, nil
	}

	compressed, err := codec.Compress(codec.Zstd, codec.LevelDefault, EncodeEnvelope(t, data))
	if err != nil {
		return "", fmt.Errorf("object store: compress %s: %w", h, err)
	}
	payload := append([]byte{byte(codec.Zstd)}, compressed...)

	path := s.objectPath(h)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("object store: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-obj-*")
	if err != nil {
		return "", fmt.Errorf("object store: tmpfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object store: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object store: rename: %w", err)
	}
	return h, nil
}

// Read decompresses and returns the object at h, trying the loose store
// first and each registered pack backend in order after.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	path := s.objectPath(h)
	raw, err := os.ReadFile(path)
	if err == nil {
		return s.decodeLoose(h, raw)
	}
	if !os.IsNotExist(err) {
		return "", nil, fmt.Errorf("object store: read %s: %w", h, err)
	}
	for _, pb := range s.packBackends {
		if t, data, err := pb.Get(h); err == nil {
			return t, data, nil
		}
	}
	return "", nil, fmt.Errorf("object store: read %s: %w", h, os.ErrNotExist)
}

// decodeLoose parses the on-disk object file format from spec §6:
// "[codec u8][compressed bytes...]"; the stored hash is over the
// decompressed content, so decompressed bytes are re-hashed against h to
// detect on-disk corruption (spec 7: Corruption/ChecksumMismatch).
func (s *Store) decodeLoose(h Hash, raw []byte) (ObjectType, []byte, error) {
	if len(raw) < 1 {
		return "", nil, fmt.Errorf("object store: %s: %w: empty object file", h, ErrCorruption)
	}
	data, err := codec.Decompress(codec.ID(raw[0]), raw[1:])
	if err != nil {
		return "", nil, fmt.Errorf("object store: %s: %w: %v", h, ErrCorruption, err)
	}
	t, content, err := DecodeEnvelope(data)
	if err != nil {
		return "", nil, fmt.Errorf("object store: %s: %w: %v", h, ErrCorruption, err)
	}
	if HashObject(t, content) != h {
		return "", nil, fmt.Errorf("object store: %s: %w: checksum mismatch", h, ErrCorruption)
	}
	return t, content, nil
}

// Iterate visits every hash in the loose store (used by GC and export, spec
// 4.B's iter_objects). Pack-backed objects are visited via the pack's own
// manifest, not through this method.
func (s *Store) Iterate(fn func(Hash) error) error {
	fanouts, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("object store: iterate: %w", err)
	}
	var hashes []Hash
	for _, fanout := range fanouts {
		if !fanout.IsDir() || len(fanout.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.root, fanout.Name()))
		if err != nil {
			return fmt.Errorf("object store: iterate %s: %w", fanout.Name(), err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			hashes = append(hashes, Hash(fanout.Name()+e.Name()))
		}
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	for _, h := range hashes {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes a loose object outright. Only CollectGarbage calls this, for
// loose objects unreachable from its roots — objects are otherwise
// append-only per spec's lifecycle rule.
func (s *Store) Remove(h Hash) error {
	err := os.Remove(s.objectPath(h))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("object store: remove %s: %w", h, err)
	}
	return nil
}

// Typed convenience wrappers.

func (s *Store) WriteBlob(b *Blob) (Hash, error) { return s.Write(TypeBlob, MarshalBlob(b)) }

func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	t, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if t != TypeBlob {
		return nil, fmt.Errorf("object store: %s: expected blob, got %s", h, t)
	}
	return UnmarshalBlob(data), nil
}

func (s *Store) WriteTree(tr *Tree) (Hash, error) {
	if err := validateTree(tr); err != nil {
		return "", err
	}
	return s.Write(TypeTree, MarshalTree(tr))
}

func validateTree(tr *Tree) error {
	seen := make(map[string]struct{}, len(tr.Entries))
	for _, e := range tr.Entries {
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("object store: tree: duplicate entry name %q", e.Name)
		}
		seen[e.Name] = struct{}{}
		switch e.Mode {
		case ModeFile, ModeExecutable, ModeSymlink, ModeDir:
		default:
			return fmt.Errorf("object store: tree: invalid mode %q for %q", e.Mode, e.Name)
		}
	}
	return nil
}

func (s *Store) ReadTree(h Hash) (*Tree, error) {
	t, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if t != TypeTree {
		return nil, fmt.Errorf("object store: %s: expected tree, got %s", h, t)
	}
	return UnmarshalTree(data)
}

func (s *Store) WriteTag(tag *TagObj) (Hash, error) { return s.Write(TypeTag, MarshalTag(tag)) }

func (s *Store) ReadTag(h Hash) (*TagObj, error) {
	t, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if t != TypeTag {
		return nil, fmt.Errorf("object store: %s: expected tag, got %s", h, t)
	}
	return UnmarshalTag(data)
}
