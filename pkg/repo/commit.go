package repo

import (
	"errors"
	"fmt"

	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/refs"
)

// Commit builds a tree from the current index, writes a commit record on
// top of HEAD's current commit (if any), and advances the attached branch
// (or detached HEAD) to it. Grounded on the teacher's pkg/repo/commit.go's
// seven-step algorithm, rebuilt on index.BuildTree/commitgraph.WriteCommit/
// refs.UpdateRefCAS instead of the teacher's bespoke staging/ref files.
func (r *Repo) Commit(message string, identity object.Identity) (object.Hash, error) {
	if len(r.Index.Entries()) == 0 {
		return "", fmt.Errorf("commit: %w", index.ErrInvalidPath)
	}
	if r.Index.HasConflicts() {
		return "", fmt.Errorf("commit: index has unresolved conflicts")
	}
	if err := r.runHook("pre-commit", map[string]string{"message": message}); err != nil {
		return "", err
	}

	treeHash, err := r.Index.BuildTree()
	if err != nil {
		return "", fmt.Errorf("commit: build tree: %w", err)
	}

	head, err := r.Refs.ReadHead()
	if err != nil {
		return "", fmt.Errorf("commit: read HEAD: %w", err)
	}

	var parents []object.Hash
	var branch string
	attached := head.Kind == refs.Attached
	if attached {
		branch = head.BranchName
		if parentHash, err := r.Refs.ResolveBranch(branch); err == nil {
			parents = append(parents, parentHash)
		} else if !errors.Is(err, refs.ErrBranchNotFound) {
			return "", fmt.Errorf("commit: resolve branch %q: %w", branch, err)
		}
	} else if head.CommitID != "" {
		parents = append(parents, head.CommitID)
	}

	rec := &object.CommitRecord{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    identity,
		Committer: identity,
		Message:   message,
	}
	commitHash, err := r.Graph.WriteCommit(rec)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	if attached {
		var oldParent object.Hash
		if len(parents) == 1 {
			oldParent = parents[0]
		}
		if err := r.Refs.UpdateRefCAS(branch, oldParent, commitHash, "commit"); err != nil {
			return "", fmt.Errorf("commit: update branch %q: %w", branch, err)
		}
	} else if err := r.Refs.SetHeadDetached(commitHash); err != nil {
		return "", fmt.Errorf("commit: update detached HEAD: %w", err)
	}

	_ = r.runHook("post-commit", map[string]string{"commit": string(commitHash)})
	return commitHash, nil
}

// Log walks start's ancestry depth first over every parent (via
// commitgraph.Ancestors), returning up to limit commit records in visit
// order, start first, each commit once. Grounded on the teacher's
// pkg/repo/commit.go's Log.
func (r *Repo) Log(start object.Hash, limit int) ([]*object.CommitRecord, error) {
	ids, err := r.Graph.Ancestors(start, limit)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	recs := make([]*object.CommitRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Graph.ReadCommit(id)
		if err != nil {
			return nil, fmt.Errorf("log: read %s: %w", id, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
