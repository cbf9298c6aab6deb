package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/worktree"
)

// Status reports the working tree's status relative to HEAD's tree (empty
// tree if there are no commits yet) and the current index. Grounded on the
// teacher's pkg/repo/status.go (Repo.Status, StatusEntry), superseded here
// by worktree.Compute which generalizes the teacher's five-state
// classification onto index.Entry/IgnoreMatcher directly.
func (r *Repo) Status() (*worktree.Status, error) {
	ignore, err := worktree.LoadIgnoreMatcher(r.RootDir)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	var parentTree object.Hash
	if headHash, err := r.Refs.ResolveHead(); err == nil {
		if commit, err := r.Graph.ReadCommit(headHash); err == nil {
			parentTree = commit.TreeHash
		}
	}

	return worktree.Compute(r.RootDir, r.Index, r.Objects, parentTree, ignore)
}
