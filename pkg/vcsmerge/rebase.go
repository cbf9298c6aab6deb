package vcsmerge

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
)

// RebaseOutcome reports what Rebase/RebaseContinue actually did.
type RebaseOutcome struct {
	NewTip     object.Hash
	Conflicted bool
	Conflicts  []string
	Done       bool
}

// Rebase implements spec 4.H's rebase(onto): replay every commit unique to
// the current branch (current \ onto, oldest first) on top of onto as a
// sequence of cherry-picks. A non-interactive rebase's plan is "pick"
// every commit in order; RebaseInteractive takes an explicit plan instead.
func (e *Engine) Rebase(onto object.Hash, opts CherryPickOptions) (*RebaseOutcome, error) {
	current, err := e.requireCleanHead()
	if err != nil {
		return nil, err
	}
	commits, err := e.commitsToReplay(current, onto)
	if err != nil {
		return nil, err
	}
	plan := make([]RebaseStep, len(commits))
	for i, c := range commits {
		plan[i] = RebaseStep{Action: ActionPick, Commit: c}
	}
	return e.startRebase(current, onto, plan, opts)
}

// RebaseInteractive runs a caller-supplied plan (pick/reword/squash/drop/
// edit) instead of a straight replay, per spec 4.H's interactive variant.
func (e *Engine) RebaseInteractive(onto object.Hash, plan []RebaseStep, opts CherryPickOptions) (*RebaseOutcome, error) {
	current, err := e.requireCleanHead()
	if err != nil {
		return nil, err
	}
	return e.startRebase(current, onto, plan, opts)
}

func (e *Engine) requireCleanHead() (object.Hash, error) {
	if _, err := e.requireClean(); err != nil {
		return "", err
	}
	current, err := e.refsMgr.ResolveHead()
	if err != nil {
		return "", fmt.Errorf("vcsmerge: rebase: %w", err)
	}
	return current, nil
}

// commitsToReplay returns current's commits since its merge base with onto,
// oldest first — spec 4.H's current \ onto for a linear history.
func (e *Engine) commitsToReplay(current, onto object.Hash) ([]object.Hash, error) {
	base, ok, err := e.graph.LowestCommonAncestor(current, onto)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: rebase: %w", err)
	}
	var from object.Hash
	if ok {
		from = base
	}
	commits, err := e.graph.Range(from, current)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: rebase: %w", err)
	}
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

func (e *Engine) startRebase(original, onto object.Hash, plan []RebaseStep, opts CherryPickOptions) (*RebaseOutcome, error) {
	if err := e.discardToCommit(onto); err != nil {
		return nil, fmt.Errorf("vcsmerge: rebase: %w", err)
	}
	if err := e.advanceHead(original, onto); err != nil {
		return nil, fmt.Errorf("vcsmerge: rebase: %w", err)
	}
	return e.runRebasePlan(&RebaseState{Onto: onto, Plan: plan, Cursor: 0, Original: original, NewTip: onto}, opts)
}

// runRebasePlan executes st.Plan[st.Cursor:] in order, stopping at the
// first conflicted step or edit step. A reword step does not stop: it takes
// the step's Message, or the original message when that is empty.
func (e *Engine) runRebasePlan(st *RebaseState, opts CherryPickOptions) (*RebaseOutcome, error) {
	for st.Cursor < len(st.Plan) {
		step := st.Plan[st.Cursor]
		switch step.Action {
		case ActionDrop:
			st.Cursor++
			continue
		case ActionEdit:
			if err := e.writeState(&State{Kind: Rebasing, Rebase: st}); err != nil {
				return nil, err
			}
			return &RebaseOutcome{NewTip: st.NewTip}, nil
		}

		stepOpts := opts
		if step.Action == ActionReword && step.Message != "" {
			stepOpts.Message = step.Message
		}
		newID, conflicted, conflicts, err := e.cherryPickOne(st.NewTip, step.Commit, stepOpts)
		if err != nil {
			return nil, fmt.Errorf("vcsmerge: rebase: step %d: %w", st.Cursor, err)
		}
		if conflicted {
			if err := e.writeState(&State{Kind: Rebasing, Rebase: st}); err != nil {
				return nil, err
			}
			return &RebaseOutcome{NewTip: st.NewTip, Conflicted: true, Conflicts: conflicts}, nil
		}
		if step.Action == ActionSquash {
			folded, err := e.foldIntoParent(st.NewTip, newID, opts)
			if err != nil {
				return nil, fmt.Errorf("vcsmerge: rebase: squash step %d: %w", st.Cursor, err)
			}
			st.NewTip = folded
		} else {
			st.NewTip = newID
		}
		st.Cursor++
	}

	if err := e.clearState(); err != nil {
		return nil, err
	}
	return &RebaseOutcome{NewTip: st.NewTip, Done: true}, nil
}

// RebaseContinue resumes a conflicted rebase step once the index's
// conflicts are resolved.
func (e *Engine) RebaseContinue(opts CherryPickOptions) (*RebaseOutcome, error) {
	st, err := e.readState()
	if err != nil {
		return nil, err
	}
	if st.Kind != Rebasing {
		return nil, fmt.Errorf("vcsmerge: rebase --continue: %w", ErrNoOperationInProgress)
	}
	if e.idx.HasConflicts() {
		return nil, fmt.Errorf("vcsmerge: rebase --continue: %w", ErrUnresolvedConflicts)
	}

	rs := st.Rebase
	step := rs.Plan[rs.Cursor]
	treeHash, err := e.idx.BuildTree()
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: rebase --continue: %w", err)
	}
	original, err := e.graph.ReadCommit(step.Commit)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: rebase --continue: %w", err)
	}
	message := original.Message
	if step.Action == ActionReword && step.Message != "" {
		message = step.Message
	}
	rec := &object.CommitRecord{
		TreeHash:  treeHash,
		Parents:   []object.Hash{rs.NewTip},
		Author:    original.Author,
		Committer: newIdentity(opts.CommitterName, opts.CommitterEmail),
		Message:   message,
	}
	newID, err := e.graph.WriteCommit(rec)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: rebase --continue: write commit: %w", err)
	}
	if err := e.advanceHead(rs.NewTip, newID); err != nil {
		return nil, err
	}
	if step.Action == ActionSquash {
		folded, err := e.foldIntoParent(rs.NewTip, newID, opts)
		if err != nil {
			return nil, fmt.Errorf("vcsmerge: rebase --continue: squash: %w", err)
		}
		rs.NewTip = folded
	} else {
		rs.NewTip = newID
	}
	rs.Cursor++
	return e.runRebasePlan(rs, opts)
}

// foldIntoParent combines a just-committed squash step (child, whose sole
// parent is parent) into parent's own commit: the result keeps child's
// already-merged tree but parent's parent and author, with both messages
// joined, so the squashed commit never shows up as its own node in the
// rebased history.
func (e *Engine) foldIntoParent(parent, child object.Hash, opts CherryPickOptions) (object.Hash, error) {
	parentRec, err := e.graph.ReadCommit(parent)
	if err != nil {
		return "", fmt.Errorf("fold: read %s: %w", parent, err)
	}
	childRec, err := e.graph.ReadCommit(child)
	if err != nil {
		return "", fmt.Errorf("fold: read %s: %w", child, err)
	}
	folded := &object.CommitRecord{
		TreeHash:  childRec.TreeHash,
		Parents:   parentRec.Parents,
		Author:    parentRec.Author,
		Committer: newIdentity(opts.CommitterName, opts.CommitterEmail),
		Message:   parentRec.Message + "\n\n" + childRec.Message,
	}
	foldedID, err := e.graph.WriteCommit(folded)
	if err != nil {
		return "", fmt.Errorf("fold: write commit: %w", err)
	}
	if err := e.advanceHead(child, foldedID); err != nil {
		return "", err
	}
	return foldedID, nil
}

// RebaseSkip drops the currently-conflicted step and resumes with the rest
// of the plan.
func (e *Engine) RebaseSkip(opts CherryPickOptions) (*RebaseOutcome, error) {
	st, err := e.readState()
	if err != nil {
		return nil, err
	}
	if st.Kind != Rebasing {
		return nil, fmt.Errorf("vcsmerge: rebase --skip: %w", ErrNoOperationInProgress)
	}
	rs := st.Rebase
	if err := e.discardToCommit(rs.NewTip); err != nil {
		return nil, fmt.Errorf("vcsmerge: rebase --skip: %w", err)
	}
	rs.Cursor++
	return e.runRebasePlan(rs, opts)
}

// RebaseAbort restores the original branch tip and working tree, dropping
// the Rebasing state.
func (e *Engine) RebaseAbort() error {
	st, err := e.readState()
	if err != nil {
		return err
	}
	if st.Kind != Rebasing {
		return fmt.Errorf("vcsmerge: rebase --abort: %w", ErrNoOperationInProgress)
	}
	rs := st.Rebase
	if err := e.discardToCommit(rs.Original); err != nil {
		return fmt.Errorf("vcsmerge: rebase --abort: %w", err)
	}
	branch, attached, err := e.refsMgr.CurrentBranch()
	if err != nil {
		return fmt.Errorf("vcsmerge: rebase --abort: %w", err)
	}
	if attached {
		if err := e.refsMgr.UpdateRefCAS(branch, rs.NewTip, rs.Original, "rebase: abort"); err != nil {
			return fmt.Errorf("vcsmerge: rebase --abort: %w", err)
		}
	} else {
		if err := e.refsMgr.SetHeadDetached(rs.Original); err != nil {
			return fmt.Errorf("vcsmerge: rebase --abort: %w", err)
		}
	}
	return e.clearState()
}
