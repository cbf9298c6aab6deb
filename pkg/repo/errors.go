package repo

import "errors"

// ErrNotARepository is returned by Open when no control directory is found
// walking up from the given path.
var ErrNotARepository = errors.New("repo: not a repository")

// ErrRepositoryBusy is returned when the repository lock could not be
// acquired within its configured bound — spec 5's "bounded wait ... then
// fails with RepositoryBusy".
var ErrRepositoryBusy = errors.New("repo: repository busy")

// ErrAmbiguousHashPrefix is returned when a short hash prefix passed to a
// committish resolver matches more than one commit.
var ErrAmbiguousHashPrefix = errors.New("repo: ambiguous hash prefix")

// ErrNoCommits is returned by operations (stash save) that require at
// least one commit to exist on the resolved ref.
var ErrNoCommits = errors.New("repo: no commits")

// ErrCancelled is the Cancelled-kind sentinel; cmd/glyph maps it, like
// ErrHookVetoed, to the cancelled exit code. No operation in this package
// polls a cancel signal, so nothing here returns it.
var ErrCancelled = errors.New("repo: cancelled")

// ErrHookVetoed is returned when a hook subprocess (spec 9's "hooks can
// veto by returning non-zero") rejects the operation it was invoked for.
// The core treats it identically to ErrCancelled.
var ErrHookVetoed = errors.New("repo: hook vetoed operation")
