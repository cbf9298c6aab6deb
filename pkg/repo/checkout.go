package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/refs"
	"github.com/glyphvcs/glyph/pkg/worktree"
)

// Checkout switches the working tree and HEAD to target (a branch, tag, or
// commit hash), attaching HEAD to the branch when target names one and
// detaching it otherwise. Grounded on the teacher's pkg/repo/checkout.go's
// seven-step algorithm, rebuilt on worktree.CheckoutTree instead of the
// teacher's own remove-then-rewrite-everything loop.
func (r *Repo) Checkout(target string, force bool) error {
	targetHash, err := r.ResolveCommittish(target)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	targetCommit, err := r.Graph.ReadCommit(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: read commit %s: %w", targetHash, err)
	}

	var currentTree object.Hash
	if currentHash, err := r.Refs.ResolveHead(); err == nil {
		if cur, err := r.Graph.ReadCommit(currentHash); err == nil {
			currentTree = cur.TreeHash
		}
	}

	ignore, err := worktree.LoadIgnoreMatcher(r.RootDir)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if _, err := worktree.CheckoutTree(r.RootDir, r.Index, r.Objects, ignore, currentTree, targetCommit.TreeHash, force); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.Index.Flush(); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if _, err := r.Refs.ResolveBranch(target); err == nil {
		if err := r.Refs.SetHeadAttached(target); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		return nil
	}
	if err := r.Refs.SetHeadDetached(targetHash); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	return nil
}

// currentBranch is a tiny guard some higher-level commands
// (branch -d, reset) use to decide whether HEAD currently follows a branch.
func (r *Repo) currentBranch() (string, bool, error) {
	branch, attached, err := r.Refs.CurrentBranch()
	if err != nil && err != refs.ErrDetachedHead {
		return "", false, err
	}
	return branch, attached, nil
}
