package vcsmerge

import "errors"

// ErrOperationInProgress is returned when a merge, cherry-pick, rebase, or
// bisect is started while the worktree's state machine is already away from
// Clean — spec 4.H requires resolving (or aborting) the one in progress
// before starting another.
var ErrOperationInProgress = errors.New("vcsmerge: an operation is already in progress")

// ErrNoOperationInProgress is returned by a --continue/--abort/--skip call
// made while the worktree is Clean.
var ErrNoOperationInProgress = errors.New("vcsmerge: no operation is in progress")

// ErrUnresolvedConflicts is returned by continue when the index still has
// paths staged in conflict.
var ErrUnresolvedConflicts = errors.New("vcsmerge: unresolved conflicts remain")

// ErrNothingToCommit is the nothing-to-commit sentinel that cmd/glyph maps
// to an exit code. No operation in this package returns it: cherry-pick,
// rebase steps and merge --continue write their commit even when its tree
// equals its parent's.
var ErrNothingToCommit = errors.New("vcsmerge: nothing to commit")

// ErrBisectNotStarted is returned by good/bad/skip/reset before Start.
var ErrBisectNotStarted = errors.New("vcsmerge: bisect has not been started")
