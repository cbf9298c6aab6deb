package object

import "fmt"

// ReachableSet computes the set of object-store hashes (blobs, trees, tag
// objects) reachable from roots by DFS mark-sweep, following tree entries
// and tag targets. Commit and blob/tree hashes reachable via commits are
// supplied by the caller (pkg/repo walks the commit graph and feeds this
// function every tree_hash it finds) — this function only knows how to walk
// the object store's own graph (tree -> {blob, subtree}, tag -> target).
func (s *Store) ReachableSet(roots []Hash) (map[Hash]struct{}, error) {
	seen := make(map[Hash]struct{})
	stack := append([]Hash(nil), roots...)

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}

		t, data, err := s.Read(h)
		if err != nil {
			return nil, fmt.Errorf("object store: reachable: read %s: %w", h, err)
		}
		for _, child := range referencedHashes(t, data) {
			if _, ok := seen[child]; !ok {
				stack = append(stack, child)
			}
		}
	}
	return seen, nil
}

func referencedHashes(t ObjectType, data []byte) []Hash {
	switch t {
	case TypeBlob:
		return nil
	case TypeTag:
		tag, err := UnmarshalTag(data)
		if err != nil {
			return nil
		}
		return []Hash{tag.Target}
	case TypeTree:
		tree, err := UnmarshalTree(data)
		if err != nil {
			return nil
		}
		out := make([]Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			out = append(out, e.Hash)
		}
		return out
	default:
		return nil
	}
}

// CollectGarbage removes every loose object not reachable from roots. It
// never touches pack-backed objects (packs are immutable once written; see
// pkg/pack) — only loose objects that have not yet been packed are
// candidates for removal.
func (s *Store) CollectGarbage(roots []Hash) (kept, removed int, err error) {
	live, err := s.ReachableSet(roots)
	if err != nil {
		return 0, 0, err
	}
	err = s.Iterate(func(h Hash) error {
		if _, ok := live[h]; ok {
			kept++
			return nil
		}
		if rerr := s.Remove(h); rerr != nil {
			return rerr
		}
		removed++
		return nil
	})
	if err != nil {
		return kept, removed, fmt.Errorf("object store: collect garbage: %w", err)
	}
	return kept, removed, nil
}
