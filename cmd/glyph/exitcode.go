package main

import (
	"errors"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/pack"
	"github.com/glyphvcs/glyph/pkg/refs"
	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
	"github.com/glyphvcs/glyph/pkg/worktree"
)

// Exit codes per spec 6: 0 success, 1 user error, 2 state conflict,
// 3 corruption, 4 I/O, 5 cancelled.
const (
	exitSuccess       = 0
	exitUserError     = 1
	exitStateConflict = 2
	exitCorruption    = 3
	exitIOError       = 4
	exitCancelled     = 5
)

// exitCodeFor maps a core error to one of the six exit codes above by
// walking the error chain against every package's sentinel — this is the
// one place cmd/glyph is allowed to know about every collaborator's error
// taxonomy, since the core packages themselves never assign exit codes.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}

	switch {
	case errors.Is(err, repo.ErrCancelled), errors.Is(err, repo.ErrHookVetoed):
		return exitCancelled
	case errors.Is(err, object.ErrCorruption), errors.Is(err, object.ErrDanglingHash),
		errors.Is(err, pack.ErrCorrupt):
		return exitCorruption
	case errors.Is(err, repo.ErrRepositoryBusy),
		errors.Is(err, refs.ErrRefRaceLost),
		errors.Is(err, vcsmerge.ErrOperationInProgress),
		errors.Is(err, vcsmerge.ErrUnresolvedConflicts):
		return exitStateConflict
	case isUncommittedChangesError(err):
		return exitStateConflict
	case errors.Is(err, repo.ErrNotARepository),
		errors.Is(err, repo.ErrAmbiguousHashPrefix),
		errors.Is(err, repo.ErrNoCommits),
		errors.Is(err, repo.ErrNoStashEntries), errors.Is(err, repo.ErrStashNotFound),
		errors.Is(err, refs.ErrBranchNotFound), errors.Is(err, refs.ErrBranchExists),
		errors.Is(err, refs.ErrTagNotFound), errors.Is(err, refs.ErrTagExists),
		errors.Is(err, refs.ErrInvalidName), errors.Is(err, refs.ErrDetachedHead),
		errors.Is(err, index.ErrInvalidPath),
		errors.Is(err, catalog.ErrInvalidKey),
		errors.Is(err, vcsmerge.ErrNoOperationInProgress),
		errors.Is(err, vcsmerge.ErrNothingToCommit),
		errors.Is(err, vcsmerge.ErrBisectNotStarted):
		return exitUserError
	}
	return exitIOError
}

func isUncommittedChangesError(err error) bool {
	var target *worktree.UncommittedChangesWouldBeLostError
	return errors.As(err, &target)
}
