package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
)

// Merge, CherryPick, Rebase, and Bisect are thin wrappers constructing a
// fresh vcsmerge.Engine per call and delegating spec 4.H's history-edit
// operations to it. Grounded on the teacher's pkg/repo/merge.go
// (FindMergeBase, per-path conflict rendering), fully superseded here by
// pkg/vcsmerge's resumable state-machine implementation — see DESIGN.md.

func (r *Repo) Merge(target object.Hash, opts vcsmerge.MergeOptions) (*vcsmerge.MergeOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return e.Merge(target, opts)
}

func (r *Repo) MergeContinue(opts vcsmerge.MergeOptions) (*vcsmerge.MergeOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("merge --continue: %w", err)
	}
	return e.MergeContinue(opts)
}

func (r *Repo) MergeAbort() error {
	e, err := r.Engine()
	if err != nil {
		return fmt.Errorf("merge --abort: %w", err)
	}
	return e.MergeAbort()
}

func (r *Repo) CherryPick(commits []object.Hash, opts vcsmerge.CherryPickOptions) (*vcsmerge.CherryPickOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("cherry-pick: %w", err)
	}
	return e.CherryPick(commits, opts)
}

func (r *Repo) CherryPickContinue(opts vcsmerge.CherryPickOptions) (*vcsmerge.CherryPickOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("cherry-pick --continue: %w", err)
	}
	return e.CherryPickContinue(opts)
}

func (r *Repo) CherryPickSkip(opts vcsmerge.CherryPickOptions) (*vcsmerge.CherryPickOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("cherry-pick --skip: %w", err)
	}
	return e.CherryPickSkip(opts)
}

func (r *Repo) CherryPickAbort() error {
	e, err := r.Engine()
	if err != nil {
		return fmt.Errorf("cherry-pick --abort: %w", err)
	}
	return e.CherryPickAbort()
}

func (r *Repo) Rebase(onto object.Hash, opts vcsmerge.CherryPickOptions) (*vcsmerge.RebaseOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	}
	return e.Rebase(onto, opts)
}

func (r *Repo) RebaseContinue(opts vcsmerge.CherryPickOptions) (*vcsmerge.RebaseOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("rebase --continue: %w", err)
	}
	return e.RebaseContinue(opts)
}

func (r *Repo) RebaseSkip(opts vcsmerge.CherryPickOptions) (*vcsmerge.RebaseOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("rebase --skip: %w", err)
	}
	return e.RebaseSkip(opts)
}

func (r *Repo) RebaseAbort() error {
	e, err := r.Engine()
	if err != nil {
		return fmt.Errorf("rebase --abort: %w", err)
	}
	return e.RebaseAbort()
}

func (r *Repo) BisectStart(bad, good object.Hash) (*vcsmerge.BisectOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("bisect start: %w", err)
	}
	return e.BisectStart(bad, good)
}

func (r *Repo) BisectGood() (*vcsmerge.BisectOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("bisect good: %w", err)
	}
	return e.BisectGood()
}

func (r *Repo) BisectBad() (*vcsmerge.BisectOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("bisect bad: %w", err)
	}
	return e.BisectBad()
}

func (r *Repo) BisectSkip() (*vcsmerge.BisectOutcome, error) {
	e, err := r.Engine()
	if err != nil {
		return nil, fmt.Errorf("bisect skip: %w", err)
	}
	return e.BisectSkip()
}

func (r *Repo) BisectReset() error {
	e, err := r.Engine()
	if err != nil {
		return fmt.Errorf("bisect reset: %w", err)
	}
	return e.BisectReset()
}
