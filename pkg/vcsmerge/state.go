package vcsmerge

import (
	"encoding/json"
	"fmt"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/object"
)

// Kind names which branch of spec 4.H's per-worktree state machine is
// active.
type Kind int

const (
	Clean Kind = iota
	Merging
	CherryPicking
	Rebasing
	Bisecting
)

func (k Kind) String() string {
	switch k {
	case Clean:
		return "clean"
	case Merging:
		return "merging"
	case CherryPicking:
		return "cherry-picking"
	case Rebasing:
		return "rebasing"
	case Bisecting:
		return "bisecting"
	default:
		return "unknown"
	}
}

// MergeState is Merging{base, ours, theirs}.
type MergeState struct {
	Base, Ours, Theirs object.Hash
}

// CherryPickState is CherryPicking{seq, remaining}: seq is the full
// requested sequence in order, remaining is what's left to apply including
// the one that just conflicted (--continue commits the resolved index for
// it, then applies the rest).
type CherryPickState struct {
	Sequence  []object.Hash
	Remaining []object.Hash
}

// RebaseAction is one step of an interactive rebase plan.
type RebaseAction string

const (
	ActionPick   RebaseAction = "pick"
	ActionReword RebaseAction = "reword"
	ActionSquash RebaseAction = "squash"
	ActionDrop   RebaseAction = "drop"
	ActionEdit   RebaseAction = "edit"
)

// RebaseStep is one entry of a rebase plan.
type RebaseStep struct {
	Action  RebaseAction
	Commit  object.Hash
	Message string // reword's replacement message, if Action == ActionReword
}

// RebaseState is Rebasing{onto, plan, cursor}.
type RebaseState struct {
	Onto   object.Hash
	Plan   []RebaseStep
	Cursor int
	// Original is the branch tip being rebased, recorded so abort can
	// restore it exactly.
	Original object.Hash
	// NewTip is the last commit produced by the rebase so far (the growing
	// replacement history); the next step's "ours" parent.
	NewTip object.Hash
}

// BisectState is Bisecting{bad, good, next}.
type BisectState struct {
	Bad     object.Hash
	Good    []object.Hash
	Next    object.Hash
	Skipped []object.Hash
}

// State is the full per-worktree state machine value, persisted as a
// single document in the catalog's OPS partition (spec 4.C lists OPS for
// exactly this purpose).
type State struct {
	Kind       Kind
	Merge      *MergeState       `json:",omitempty"`
	CherryPick *CherryPickState  `json:",omitempty"`
	Rebase     *RebaseState      `json:",omitempty"`
	Bisect     *BisectState      `json:",omitempty"`
}

const opsStateKey = "state"

func (e *Engine) readState() (*State, error) {
	data, ok, err := e.cat.Get(catalog.OPS, opsStateKey)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: read state: %w", err)
	}
	if !ok {
		return &State{Kind: Clean}, nil
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("vcsmerge: read state: %w: %v", object.ErrCorruption, err)
	}
	return &st, nil
}

func (e *Engine) writeState(st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("vcsmerge: write state: %w", err)
	}
	if err := e.cat.Set(catalog.OPS, opsStateKey, data); err != nil {
		return fmt.Errorf("vcsmerge: write state: %w", err)
	}
	return nil
}

func (e *Engine) clearState() error {
	if err := e.cat.Delete(catalog.OPS, opsStateKey); err != nil {
		return fmt.Errorf("vcsmerge: clear state: %w", err)
	}
	return nil
}

// requireClean returns ErrOperationInProgress unless the worktree is
// currently idle.
func (e *Engine) requireClean() (*State, error) {
	st, err := e.readState()
	if err != nil {
		return nil, err
	}
	if st.Kind != Clean {
		return nil, fmt.Errorf("vcsmerge: %w (currently %s)", ErrOperationInProgress, st.Kind)
	}
	return st, nil
}
