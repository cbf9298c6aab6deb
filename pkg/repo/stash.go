package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
	"github.com/glyphvcs/glyph/pkg/worktree"
)

// StashEntry is the {id, message, saved_index, saved_worktree_tree,
// base_commit} record spec 3's data model names. Grounded on the original
// mug implementation's stash.rs Stash struct, persisted through the
// catalog's STASH partition instead of a bespoke sled tree.
type StashEntry struct {
	ID                string      `json:"id"`
	Message           string      `json:"message"`
	SavedIndexTree    object.Hash `json:"saved_index_tree"`
	SavedWorktreeTree object.Hash `json:"saved_worktree_tree"`
	BaseCommit        object.Hash `json:"base_commit"`
	Timestamp         int64       `json:"timestamp"`
}

// ErrNoStashEntries is returned by StashPop/StashApply's "latest" form when
// the STASH partition is empty.
var ErrNoStashEntries = fmt.Errorf("repo: no stash entries")

// ErrStashNotFound is returned when a stash id doesn't resolve to an entry.
var ErrStashNotFound = fmt.Errorf("repo: stash not found")

// StashSave snapshots the current index and working tree, then restores
// both to HEAD's committed state, following stash.rs's create (snapshot)
// folded together with a hard reset to the base commit — the original
// left "restore" as a stub (stash.rs's apply just logs a message); this
// implementation makes the round trip real by actually writing two trees
// and checking the worktree back out of them on apply/pop.
func (r *Repo) StashSave(message string, identity object.Identity) (string, error) {
	base, err := r.Refs.ResolveHead()
	if err != nil {
		return "", fmt.Errorf("stash save: %w", ErrNoCommits)
	}

	savedIndexTree, err := r.Index.BuildTree()
	if err != nil {
		return "", fmt.Errorf("stash save: build index tree: %w", err)
	}

	savedWorktreeTree, err := r.buildWorktreeTree()
	if err != nil {
		return "", fmt.Errorf("stash save: build worktree tree: %w", err)
	}

	branch, _, err := r.Refs.CurrentBranch()
	if err != nil {
		return "", fmt.Errorf("stash save: %w", err)
	}
	now := time.Now()
	entry := StashEntry{
		ID:                fmt.Sprintf("stash-%s-%d", branch, now.UnixNano()),
		Message:           message,
		SavedIndexTree:    savedIndexTree,
		SavedWorktreeTree: savedWorktreeTree,
		BaseCommit:        base,
		Timestamp:         now.UnixNano(),
	}
	if err := r.putStash(entry); err != nil {
		return "", fmt.Errorf("stash save: %w", err)
	}

	e, err := r.Engine()
	if err != nil {
		return "", fmt.Errorf("stash save: %w", err)
	}
	if err := e.Reset(base, vcsmerge.ResetHard); err != nil {
		return "", fmt.Errorf("stash save: discard to %s: %w", base, err)
	}

	return entry.ID, nil
}

// buildWorktreeTree writes a tree object reflecting what's actually on disk
// for every path the index currently tracks, so stash captures unstaged
// edits too, not just what's been added. A path the index tracks but the
// worktree no longer has (already deleted on disk) is captured with the
// index's own blob, since there is nothing on disk left to read.
func (r *Repo) buildWorktreeTree() (object.Hash, error) {
	entries := r.Index.Entries()
	files := make([]index.FileEntry, 0, len(entries))
	for _, e := range entries {
		abs := filepath.Join(r.RootDir, filepath.FromSlash(e.Path))
		data, err := os.ReadFile(abs)
		if err != nil {
			files = append(files, index.FileEntry{Path: e.Path, BlobHash: e.BlobHash, Mode: e.Mode})
			continue
		}
		h, err := r.Objects.Write(object.TypeBlob, object.MarshalBlob(&object.Blob{Data: data}))
		if err != nil {
			return "", fmt.Errorf("write blob %q: %w", e.Path, err)
		}
		files = append(files, index.FileEntry{Path: e.Path, BlobHash: h, Mode: e.Mode})
	}
	return index.BuildTreeFromEntries(r.Objects, files)
}

// StashApply restores id's saved worktree and index contents on top of
// whatever is currently checked out, without removing the stash entry.
// Mirrors stash.rs's apply, made functional: the original only logged that
// the stash existed and never actually restored anything.
func (r *Repo) StashApply(id string) error {
	entry, err := r.resolveStash(id)
	if err != nil {
		return fmt.Errorf("stash apply: %w", err)
	}

	var currentTree object.Hash
	if head, err := r.Refs.ResolveHead(); err == nil {
		if commit, err := r.Graph.ReadCommit(head); err == nil {
			currentTree = commit.TreeHash
		}
	}
	ignore, err := worktree.LoadIgnoreMatcher(r.RootDir)
	if err != nil {
		return fmt.Errorf("stash apply: %w", err)
	}
	if _, err := worktree.CheckoutTree(r.RootDir, r.Index, r.Objects, ignore, currentTree, entry.SavedWorktreeTree, false); err != nil {
		return fmt.Errorf("stash apply: %w", err)
	}

	if err := r.restageIndexTo(entry.SavedIndexTree); err != nil {
		return fmt.Errorf("stash apply: %w", err)
	}
	return nil
}

// restageIndexTo rebuilds the index from tree's file list without touching
// the working tree, the same split CheckoutTree's caller in vcsmerge.Reset
// relies on for reset --mixed (pkg/vcsmerge/reset.go's rebuildIndexOnly) —
// stash needs it too, since the saved index tree can differ from the saved
// worktree tree (staged vs. unstaged changes at stash time).
func (r *Repo) restageIndexTo(tree object.Hash) error {
	var files []index.FileEntry
	if tree != "" {
		var err error
		files, err = index.FlattenTree(r.Objects, tree)
		if err != nil {
			return err
		}
	}
	r.Index.Clear()
	for _, f := range files {
		entry := &index.Entry{Path: f.Path, BlobHash: f.BlobHash, Mode: f.Mode}
		if info, err := os.Stat(filepath.Join(r.RootDir, filepath.FromSlash(f.Path))); err == nil {
			entry.Size = info.Size()
			entry.MTime = info.ModTime().Unix()
		}
		if err := r.Index.PutEntry(entry); err != nil {
			return fmt.Errorf("restage %q: %w", f.Path, err)
		}
	}
	return r.Index.Flush()
}

// StashPop applies id and then drops it, following stash.rs's pop.
func (r *Repo) StashPop(id string) error {
	entry, err := r.resolveStash(id)
	if err != nil {
		return fmt.Errorf("stash pop: %w", err)
	}
	if err := r.StashApply(entry.ID); err != nil {
		return fmt.Errorf("stash pop: %w", err)
	}
	if err := r.StashDrop(entry.ID); err != nil {
		return fmt.Errorf("stash pop: %w", err)
	}
	return nil
}

// StashDrop deletes id without applying it, following stash.rs's drop.
func (r *Repo) StashDrop(id string) error {
	entry, err := r.resolveStash(id)
	if err != nil {
		return fmt.Errorf("stash drop: %w", err)
	}
	if err := r.Catalog.Delete(catalog.STASH, entry.ID); err != nil {
		return fmt.Errorf("stash drop: %w", err)
	}
	return nil
}

// StashClear deletes every stash entry, following stash.rs's clear.
func (r *Repo) StashClear() error {
	entries, err := r.StashList()
	if err != nil {
		return fmt.Errorf("stash clear: %w", err)
	}
	for _, e := range entries {
		if err := r.Catalog.Delete(catalog.STASH, e.ID); err != nil {
			return fmt.Errorf("stash clear: %w", err)
		}
	}
	return nil
}

// StashList returns every stash entry, newest first, following stash.rs's
// list.
func (r *Repo) StashList() ([]StashEntry, error) {
	raw, err := r.Catalog.Scan(catalog.STASH, "")
	if err != nil {
		return nil, fmt.Errorf("stash list: %w", err)
	}
	entries := make([]StashEntry, 0, len(raw))
	for _, data := range raw {
		var e StashEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("stash list: %w: %v", object.ErrCorruption, err)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp > entries[j].Timestamp })
	return entries, nil
}

func (r *Repo) putStash(e StashEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Catalog.Set(catalog.STASH, e.ID, data)
}

// resolveStash looks up id, or the most recently saved entry when id is
// "" or "latest" (stash.rs's stash@{0}/latest convenience).
func (r *Repo) resolveStash(id string) (StashEntry, error) {
	if id == "" || id == "latest" {
		entries, err := r.StashList()
		if err != nil {
			return StashEntry{}, err
		}
		if len(entries) == 0 {
			return StashEntry{}, ErrNoStashEntries
		}
		return entries[0], nil
	}
	data, ok, err := r.Catalog.Get(catalog.STASH, id)
	if err != nil {
		return StashEntry{}, err
	}
	if !ok {
		return StashEntry{}, fmt.Errorf("%q: %w", id, ErrStashNotFound)
	}
	var e StashEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return StashEntry{}, fmt.Errorf("%w: %v", object.ErrCorruption, err)
	}
	return e, nil
}
