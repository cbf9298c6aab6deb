package vcsmerge

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
)

// CherryPickOptions carries the identity a cherry-picked commit's fresh
// Committer field is stamped with. Author is always copied from the
// original commit, per spec 4.H.
type CherryPickOptions struct {
	CommitterName  string
	CommitterEmail string
	// Message overrides the picked commit's message. Only meaningful when
	// picking a single commit; ignored for a range.
	Message string
}

// CherryPickOutcome reports what CherryPick actually did. Applied lists the
// new commit ids produced, in order, for every commit picked cleanly before
// either finishing or hitting a conflict.
type CherryPickOutcome struct {
	Applied    []object.Hash
	Conflicted bool
	Conflicts  []string
}

// CherryPick implements spec 4.H's cherry_pick(commit|range): each commit is
// diffed against its first parent and the resulting patch is applied as a
// three-way merge against HEAD, using the commit's parent tree as the
// common ancestor. A clean apply auto-commits, copying the original
// Author and stamping a fresh Committer/timestamp; a conflict leaves
// CherryPicking{sequence, remaining} for --continue/--abort/--skip.
func (e *Engine) CherryPick(commits []object.Hash, opts CherryPickOptions) (*CherryPickOutcome, error) {
	if _, err := e.requireClean(); err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return &CherryPickOutcome{}, nil
	}
	return e.runCherryPickSequence(commits, commits, opts)
}

// runCherryPickSequence applies remaining in order starting from the
// current HEAD, stopping at the first conflict. sequence is the full
// originally-requested list, recorded in CherryPickState so --continue can
// report progress against it.
func (e *Engine) runCherryPickSequence(sequence, remaining []object.Hash, opts CherryPickOptions) (*CherryPickOutcome, error) {
	out := &CherryPickOutcome{}
	if len(sequence) > 1 {
		opts.Message = ""
	}
	for i, commit := range remaining {
		current, err := e.refsMgr.ResolveHead()
		if err != nil {
			return nil, fmt.Errorf("vcsmerge: cherry-pick: %w", err)
		}
		newID, conflicted, conflicts, err := e.cherryPickOne(current, commit, opts)
		if err != nil {
			return nil, err
		}
		if conflicted {
			if err := e.writeState(&State{Kind: CherryPicking, CherryPick: &CherryPickState{
				Sequence:  sequence,
				Remaining: remaining[i:],
			}}); err != nil {
				return nil, err
			}
			out.Conflicted = true
			out.Conflicts = conflicts
			return out, nil
		}
		out.Applied = append(out.Applied, newID)
	}
	return out, nil
}

// cherryPickOne applies a single commit against current, returning the new
// commit id on a clean apply or the conflicted paths otherwise.
func (e *Engine) cherryPickOne(current, commit object.Hash, opts CherryPickOptions) (object.Hash, bool, []string, error) {
	rec, err := e.graph.ReadCommit(commit)
	if err != nil {
		return "", false, nil, fmt.Errorf("vcsmerge: cherry-pick %s: %w", commit, err)
	}
	var parent object.Hash
	if len(rec.Parents) > 0 {
		parent = rec.Parents[0]
	}

	baseTree, err := e.treeOf(parent)
	if err != nil {
		return "", false, nil, err
	}
	oursTree, err := e.treeOf(current)
	if err != nil {
		return "", false, nil, err
	}
	theirsTree := rec.TreeHash

	result, err := e.mergeTrees(baseTree, oursTree, theirsTree)
	if err != nil {
		return "", false, nil, fmt.Errorf("vcsmerge: cherry-pick %s: %w", commit, err)
	}
	oursFiles, err := e.flattenOrEmpty(oursTree)
	if err != nil {
		return "", false, nil, err
	}

	if result.hasConflicts {
		if err := e.materialize(oursFiles, result.files, result.conflicts); err != nil {
			return "", false, nil, fmt.Errorf("vcsmerge: cherry-pick %s: %w", commit, err)
		}
		conflicted := make([]string, len(result.conflicts))
		for i, c := range result.conflicts {
			conflicted[i] = c.path
		}
		return "", true, conflicted, nil
	}

	if err := e.materialize(oursFiles, result.files, nil); err != nil {
		return "", false, nil, fmt.Errorf("vcsmerge: cherry-pick %s: %w", commit, err)
	}
	newID, err := e.commitCherryPick(result.files, current, rec, opts)
	if err != nil {
		return "", false, nil, err
	}
	if err := e.advanceHead(current, newID); err != nil {
		return "", false, nil, err
	}
	return newID, false, nil, nil
}

func (e *Engine) commitCherryPick(files []index.FileEntry, current object.Hash, original *object.CommitRecord, opts CherryPickOptions) (object.Hash, error) {
	treeHash, err := index.BuildTreeFromEntries(e.objects, files)
	if err != nil {
		return "", fmt.Errorf("vcsmerge: cherry-pick: build tree: %w", err)
	}
	message := opts.Message
	if message == "" {
		message = original.Message
	}
	parents := []object.Hash{}
	if current != "" {
		parents = []object.Hash{current}
	}
	rec := &object.CommitRecord{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    original.Author,
		Committer: newIdentity(opts.CommitterName, opts.CommitterEmail),
		Message:   message,
	}
	id, err := e.graph.WriteCommit(rec)
	if err != nil {
		return "", fmt.Errorf("vcsmerge: cherry-pick: write commit: %w", err)
	}
	return id, nil
}

// CherryPickContinue resumes a conflicted cherry-pick once every conflict in
// the index has been resolved: it commits the resolution for the commit
// that conflicted, then keeps applying the rest of the sequence.
func (e *Engine) CherryPickContinue(opts CherryPickOptions) (*CherryPickOutcome, error) {
	st, err := e.readState()
	if err != nil {
		return nil, err
	}
	if st.Kind != CherryPicking {
		return nil, fmt.Errorf("vcsmerge: cherry-pick --continue: %w", ErrNoOperationInProgress)
	}
	if e.idx.HasConflicts() {
		return nil, fmt.Errorf("vcsmerge: cherry-pick --continue: %w", ErrUnresolvedConflicts)
	}
	if len(st.CherryPick.Remaining) == 0 {
		return nil, fmt.Errorf("vcsmerge: cherry-pick --continue: %w", ErrNoOperationInProgress)
	}

	current, err := e.refsMgr.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: cherry-pick --continue: %w", err)
	}
	picked := st.CherryPick.Remaining[0]
	original, err := e.graph.ReadCommit(picked)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: cherry-pick --continue: %w", err)
	}
	treeHash, err := e.idx.BuildTree()
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: cherry-pick --continue: %w", err)
	}
	message := opts.Message
	if message == "" || len(st.CherryPick.Sequence) > 1 {
		message = original.Message
	}
	rec := &object.CommitRecord{
		TreeHash:  treeHash,
		Parents:   []object.Hash{current},
		Author:    original.Author,
		Committer: newIdentity(opts.CommitterName, opts.CommitterEmail),
		Message:   message,
	}
	newID, err := e.graph.WriteCommit(rec)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: cherry-pick --continue: write commit: %w", err)
	}
	if err := e.advanceHead(current, newID); err != nil {
		return nil, err
	}
	if err := e.clearState(); err != nil {
		return nil, err
	}

	out := &CherryPickOutcome{Applied: []object.Hash{newID}}
	rest := st.CherryPick.Remaining[1:]
	if len(rest) == 0 {
		return out, nil
	}
	more, err := e.runCherryPickSequence(st.CherryPick.Sequence, rest, opts)
	if err != nil {
		return nil, err
	}
	out.Applied = append(out.Applied, more.Applied...)
	out.Conflicted = more.Conflicted
	out.Conflicts = more.Conflicts
	return out, nil
}

// CherryPickSkip drops the currently-conflicted commit from the sequence and
// resumes with whatever's left, leaving HEAD where it is.
func (e *Engine) CherryPickSkip(opts CherryPickOptions) (*CherryPickOutcome, error) {
	st, err := e.readState()
	if err != nil {
		return nil, err
	}
	if st.Kind != CherryPicking {
		return nil, fmt.Errorf("vcsmerge: cherry-pick --skip: %w", ErrNoOperationInProgress)
	}
	if err := e.clearState(); err != nil {
		return nil, err
	}
	rest := st.CherryPick.Remaining[1:]
	if len(rest) == 0 {
		return &CherryPickOutcome{}, nil
	}
	return e.runCherryPickSequence(st.CherryPick.Sequence, rest, opts)
}

// CherryPickAbort restores the working tree and index to HEAD and drops the
// CherryPicking state.
func (e *Engine) CherryPickAbort() error {
	st, err := e.readState()
	if err != nil {
		return err
	}
	if st.Kind != CherryPicking {
		return fmt.Errorf("vcsmerge: cherry-pick --abort: %w", ErrNoOperationInProgress)
	}
	current, err := e.refsMgr.ResolveHead()
	if err != nil {
		return fmt.Errorf("vcsmerge: cherry-pick --abort: %w", err)
	}
	if err := e.discardToCommit(current); err != nil {
		return fmt.Errorf("vcsmerge: cherry-pick --abort: %w", err)
	}
	return e.clearState()
}
