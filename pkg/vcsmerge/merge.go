package vcsmerge

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/worktree"
)

// MergeOptions carries the identity and message a clean merge's auto-commit
// is written with. Message defaults to a generated "Merge commit <target>" line
// when empty.
type MergeOptions struct {
	Committer object.Identity
	Message   string
}

// MergeOutcome reports what merge() actually did.
type MergeOutcome struct {
	UpToDate    bool
	FastForward bool
	CommitID    object.Hash
	Conflicted  []string
}

// Merge implements spec 4.H's merge(target_commit):
//  1. if target is already an ancestor of HEAD, nothing to do
//  2. if HEAD is an ancestor of target, fast-forward
//  3. otherwise three-way merge tree-by-tree; a clean result auto-commits
//     with two parents, a conflicted one leaves Merging{base,ours,theirs}
//     for merge --continue / --abort.
func (e *Engine) Merge(target object.Hash, opts MergeOptions) (*MergeOutcome, error) {
	if _, err := e.requireClean(); err != nil {
		return nil, err
	}

	current, err := e.refsMgr.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: merge: %w", err)
	}
	if current == target {
		return &MergeOutcome{UpToDate: true}, nil
	}

	ancestor, ok, err := e.graph.LowestCommonAncestor(current, target)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: merge: %w", err)
	}
	if ok && ancestor == current {
		return e.fastForward(current, target)
	}
	if ok && ancestor == target {
		return &MergeOutcome{UpToDate: true}, nil
	}
	return e.threeWayMerge(ancestor, current, target, opts)
}

func (e *Engine) fastForward(current, target object.Hash) (*MergeOutcome, error) {
	currentTree, err := e.treeOf(current)
	if err != nil {
		return nil, err
	}
	targetTree, err := e.treeOf(target)
	if err != nil {
		return nil, err
	}
	ignore, err := e.loadIgnore()
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: merge: %w", err)
	}
	if _, err := worktree.CheckoutTree(e.root, e.idx, e.objects, ignore, currentTree, targetTree, false); err != nil {
		return nil, fmt.Errorf("vcsmerge: merge: fast-forward: %w", err)
	}
	if err := e.advanceHead(current, target); err != nil {
		return nil, err
	}
	return &MergeOutcome{FastForward: true, CommitID: target}, nil
}

// advanceHead moves HEAD from current to target, following the attached
// branch via a CAS ref update or flipping a detached HEAD directly.
func (e *Engine) advanceHead(current, target object.Hash) error {
	branch, attached, err := e.refsMgr.CurrentBranch()
	if err != nil {
		return fmt.Errorf("vcsmerge: advance HEAD: %w", err)
	}
	if attached {
		if err := e.refsMgr.UpdateRefCAS(branch, current, target, "merge: fast-forward"); err != nil {
			return fmt.Errorf("vcsmerge: advance HEAD: %w", err)
		}
		return nil
	}
	if err := e.refsMgr.SetHeadDetached(target); err != nil {
		return fmt.Errorf("vcsmerge: advance HEAD: %w", err)
	}
	return nil
}

func (e *Engine) threeWayMerge(ancestor, current, target object.Hash, opts MergeOptions) (*MergeOutcome, error) {
	baseTree, err := e.treeOf(ancestor)
	if err != nil {
		return nil, err
	}
	oursTree, err := e.treeOf(current)
	if err != nil {
		return nil, err
	}
	theirsTree, err := e.treeOf(target)
	if err != nil {
		return nil, err
	}

	result, err := e.mergeTrees(baseTree, oursTree, theirsTree)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: merge: %w", err)
	}

	oursFiles, err := e.flattenOrEmpty(oursTree)
	if err != nil {
		return nil, err
	}

	if result.hasConflicts {
		if err := e.materialize(oursFiles, result.files, result.conflicts); err != nil {
			return nil, fmt.Errorf("vcsmerge: merge: %w", err)
		}
		if err := e.writeState(&State{Kind: Merging, Merge: &MergeState{Base: ancestor, Ours: current, Theirs: target}}); err != nil {
			return nil, err
		}
		conflicted := make([]string, len(result.conflicts))
		for i, c := range result.conflicts {
			conflicted[i] = c.path
		}
		return &MergeOutcome{Conflicted: conflicted}, nil
	}

	if err := e.materialize(oursFiles, result.files, nil); err != nil {
		return nil, fmt.Errorf("vcsmerge: merge: %w", err)
	}
	commitID, err := e.commitMerge(result.files, current, target, opts)
	if err != nil {
		return nil, err
	}
	if err := e.advanceHead(current, commitID); err != nil {
		return nil, err
	}
	return &MergeOutcome{CommitID: commitID}, nil
}

func (e *Engine) commitMerge(files []index.FileEntry, current, target object.Hash, opts MergeOptions) (object.Hash, error) {
	treeHash, err := index.BuildTreeFromEntries(e.objects, files)
	if err != nil {
		return "", fmt.Errorf("vcsmerge: merge: build tree: %w", err)
	}
	message := opts.Message
	if message == "" {
		message = fmt.Sprintf("Merge commit %s", target)
	}
	rec := &object.CommitRecord{
		TreeHash:  treeHash,
		Parents:   []object.Hash{current, target},
		Author:    opts.Committer,
		Committer: opts.Committer,
		Message:   message,
	}
	id, err := e.graph.WriteCommit(rec)
	if err != nil {
		return "", fmt.Errorf("vcsmerge: merge: write commit: %w", err)
	}
	return id, nil
}

// MergeContinue finishes a conflicted merge once every conflict has been
// resolved in the index (spec 4.H's merge --continue).
func (e *Engine) MergeContinue(opts MergeOptions) (*MergeOutcome, error) {
	st, err := e.readState()
	if err != nil {
		return nil, err
	}
	if st.Kind != Merging {
		return nil, fmt.Errorf("vcsmerge: merge --continue: %w", ErrNoOperationInProgress)
	}
	if e.idx.HasConflicts() {
		return nil, fmt.Errorf("vcsmerge: merge --continue: %w", ErrUnresolvedConflicts)
	}

	treeHash, err := e.idx.BuildTree()
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: merge --continue: %w", err)
	}
	message := opts.Message
	if message == "" {
		message = fmt.Sprintf("Merge commit %s", st.Merge.Theirs)
	}
	rec := &object.CommitRecord{
		TreeHash:  treeHash,
		Parents:   []object.Hash{st.Merge.Ours, st.Merge.Theirs},
		Author:    opts.Committer,
		Committer: opts.Committer,
		Message:   message,
	}
	commitID, err := e.graph.WriteCommit(rec)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: merge --continue: write commit: %w", err)
	}
	if err := e.advanceHead(st.Merge.Ours, commitID); err != nil {
		return nil, err
	}
	if err := e.clearState(); err != nil {
		return nil, err
	}
	return &MergeOutcome{CommitID: commitID}, nil
}

// MergeAbort restores the working tree and index to Ours and drops the
// Merging state, per spec 4.H's merge --abort.
func (e *Engine) MergeAbort() error {
	st, err := e.readState()
	if err != nil {
		return err
	}
	if st.Kind != Merging {
		return fmt.Errorf("vcsmerge: merge --abort: %w", ErrNoOperationInProgress)
	}
	if err := e.discardToCommit(st.Merge.Ours); err != nil {
		return fmt.Errorf("vcsmerge: merge --abort: %w", err)
	}
	return e.clearState()
}
