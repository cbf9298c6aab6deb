package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/refs"
)

// GC computes every ref's target as a root and sweeps unreachable loose
// objects, per spec 4.I's gc(). Grounded on the teacher's pkg/repo/gc.go
// (ListRefs roots + Store.GCReachable), rebuilt onto refs.Manager for roots
// and object.Store.CollectGarbage for the sweep. Roots also cover the
// reflog and stash, per spec 3's lifecycle note that GC must keep objects
// reachable from either, not only from a live ref/HEAD.
func (r *Repo) GC() (kept, removed int, err error) {
	roots, err := r.gcRoots()
	if err != nil {
		return 0, 0, fmt.Errorf("gc: %w", err)
	}
	kept, removed, err = r.Objects.CollectGarbage(roots)
	if err != nil {
		return 0, 0, fmt.Errorf("gc: %w", err)
	}
	return kept, removed, nil
}

// gcRoots collects the tree hashes CollectGarbage's object-store walk
// actually understands. Commit records live in the catalog's COMMITS
// partition, not the object store (pkg/commitgraph's package doc), so every
// ref/reflog/stash hash below is a commit id that first needs expanding to
// the tree of that commit and every one of its ancestors — a live branch
// keeps its whole history's trees alive, not just its tip's.
func (r *Repo) gcRoots() ([]object.Hash, error) {
	var commitRoots []object.Hash

	if h, err := r.Refs.ResolveHead(); err == nil {
		commitRoots = append(commitRoots, h)
	}

	branches, err := r.Refs.ListBranches()
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		if h, err := r.Refs.ResolveBranch(b); err == nil {
			commitRoots = append(commitRoots, h)
		}
	}

	tags, err := r.Refs.ListTags()
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if h, err := r.Refs.ResolveTag(t); err == nil {
			commitRoots = append(commitRoots, h)
		}
	}

	reflogRoots, err := r.reflogRoots()
	if err != nil {
		return nil, err
	}
	commitRoots = append(commitRoots, reflogRoots...)

	stashEntries, err := r.StashList()
	if err != nil {
		return nil, err
	}

	var roots []object.Hash
	seenCommit := make(map[object.Hash]bool)
	for _, c := range commitRoots {
		trees, err := r.commitTreeRoots(c, seenCommit)
		if err != nil {
			return nil, err
		}
		roots = append(roots, trees...)
	}
	for _, s := range stashEntries {
		trees, err := r.commitTreeRoots(s.BaseCommit, seenCommit)
		if err != nil {
			return nil, err
		}
		roots = append(roots, trees...)
		roots = append(roots, s.SavedIndexTree, s.SavedWorktreeTree)
	}

	return roots, nil
}

// commitTreeRoots walks commit and its ancestors (skipping ones already
// visited via seen, shared across calls so a history shared by several
// branches is only walked once) and returns each one's tree hash.
func (r *Repo) commitTreeRoots(commit object.Hash, seen map[object.Hash]bool) ([]object.Hash, error) {
	if commit == "" || seen[commit] {
		return nil, nil
	}
	ancestors, err := r.Graph.Ancestors(commit, 0)
	if err != nil {
		return nil, fmt.Errorf("gc roots: ancestors of %s: %w", commit, err)
	}
	var trees []object.Hash
	for _, id := range ancestors {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, err := r.Graph.ReadCommit(id)
		if err != nil {
			return nil, fmt.Errorf("gc roots: read commit %s: %w", id, err)
		}
		trees = append(trees, rec.TreeHash)
	}
	return trees, nil
}

// reflogRoots walks every ref's reflog (including one left behind by a
// since-deleted branch) and keeps both sides of every recorded transition
// alive, so `gc` run right after an amend or a branch delete never sweeps a
// commit still visible through `reflog`.
func (r *Repo) reflogRoots() ([]object.Hash, error) {
	keys, err := r.Catalog.Keys(catalog.REFLOG)
	if err != nil {
		return nil, err
	}
	var roots []object.Hash
	for _, k := range keys {
		entries, err := r.Refs.ReadReflog(k, 0)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.OldHash != "" && e.OldHash != refs.ZeroHash {
				roots = append(roots, e.OldHash)
			}
			if e.NewHash != "" && e.NewHash != refs.ZeroHash {
				roots = append(roots, e.NewHash)
			}
		}
	}
	return roots, nil
}
