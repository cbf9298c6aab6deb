package vcsmerge

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
)

// ResetMode is reset's third argument, spec 4.H's {soft, mixed, hard}.
type ResetMode int

const (
	ResetSoft ResetMode = iota
	ResetMixed
	ResetHard
)

// Reset implements spec 4.H's reset(target_commit, mode): soft moves only
// the current branch (or detached HEAD); mixed additionally rebuilds the
// index from target's tree, leaving the working tree untouched; hard
// additionally force-overwrites the working tree to match, discarding
// whatever's there — including an in-progress merge/cherry-pick/rebase,
// which reset always clears regardless of mode.
func (e *Engine) Reset(target object.Hash, mode ResetMode) error {
	current, err := e.refsMgr.ResolveHead()
	if err != nil {
		return fmt.Errorf("vcsmerge: reset: %w", err)
	}

	branch, attached, err := e.refsMgr.CurrentBranch()
	if err != nil {
		return fmt.Errorf("vcsmerge: reset: %w", err)
	}
	if attached {
		if err := e.refsMgr.UpdateRefCAS(branch, current, target, "reset"); err != nil {
			return fmt.Errorf("vcsmerge: reset: %w", err)
		}
	} else {
		if err := e.refsMgr.SetHeadDetached(target); err != nil {
			return fmt.Errorf("vcsmerge: reset: %w", err)
		}
	}

	if st, err := e.readState(); err == nil && st.Kind != Clean {
		e.clearState()
	}

	if mode == ResetSoft {
		return nil
	}

	targetTree, err := e.treeOf(target)
	if err != nil {
		return fmt.Errorf("vcsmerge: reset: %w", err)
	}
	files, err := e.flattenOrEmpty(targetTree)
	if err != nil {
		return fmt.Errorf("vcsmerge: reset: %w", err)
	}

	if mode == ResetMixed {
		return e.rebuildIndexOnly(files)
	}

	if err := e.discardToCommit(target); err != nil {
		return fmt.Errorf("vcsmerge: reset --hard: %w", err)
	}
	return nil
}

// rebuildIndexOnly restages the index to target's file list without
// touching the working tree, per reset --mixed. A path missing from disk is
// staged with a zero size/mtime rather than failing the reset outright; the
// next status scan reports it as deleted.
func (e *Engine) rebuildIndexOnly(files []index.FileEntry) error {
	e.idx.Clear()
	for _, f := range files {
		info, err := statWorking(e.root, f.Path)
		entry := &index.Entry{Path: f.Path, BlobHash: f.BlobHash, Mode: f.Mode}
		if err == nil {
			entry.Size = info.size
			entry.MTime = info.mtime
		}
		if err := e.idx.PutEntry(entry); err != nil {
			return fmt.Errorf("vcsmerge: reset --mixed: restage %q: %w", f.Path, err)
		}
	}
	return e.idx.Flush()
}
