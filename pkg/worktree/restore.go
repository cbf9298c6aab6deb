package worktree

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
)

// RestoreSource picks what restore() overwrites a path from.
type RestoreSource int

const (
	// RestoreFromIndex rewrites the working tree file to match the staged
	// entry, leaving the index itself untouched.
	RestoreFromIndex RestoreSource = iota
	// RestoreFromHEAD rewrites both the index entry and the working tree
	// file to match headTree, discarding any staged change at that path.
	RestoreFromHEAD
)

// Restore overwrites exactly the listed paths from source, never touching
// untracked siblings. headTree is only consulted when source is
// RestoreFromHEAD. Grounded on the teacher's checkout path-writing loop
// (write blob, stat, restage), narrowed to the explicit path list spec
// 4.G's restore() takes instead of a whole-tree switch.
func Restore(root string, idx *index.Index, objects *object.Store, headTree object.Hash, paths []string, source RestoreSource) error {
	var headMap map[string]index.FileEntry
	if source == RestoreFromHEAD {
		files, err := flattenOrEmpty(objects, headTree)
		if err != nil {
			return fmt.Errorf("worktree: restore: flatten HEAD: %w", err)
		}
		headMap = make(map[string]index.FileEntry, len(files))
		for _, f := range files {
			headMap[f.Path] = f
		}
	}

	for _, p := range paths {
		var target index.FileEntry
		switch source {
		case RestoreFromIndex:
			e, ok := idx.Get(p)
			if !ok {
				return fmt.Errorf("worktree: restore %q: not staged", p)
			}
			target = index.FileEntry{Path: e.Path, BlobHash: e.BlobHash, Mode: e.Mode}
		case RestoreFromHEAD:
			f, ok := headMap[p]
			if !ok {
				return fmt.Errorf("worktree: restore %q: not present in HEAD", p)
			}
			target = f
		default:
			return fmt.Errorf("worktree: restore %q: unknown source", p)
		}

		if err := writeBlobAtomically(root, objects, target); err != nil {
			return fmt.Errorf("worktree: restore %q: %w", p, err)
		}

		if source == RestoreFromHEAD {
			abs := filepath.Join(root, filepath.FromSlash(p))
			info, err := os.Stat(abs)
			if err != nil {
				return fmt.Errorf("worktree: restore %q: stat: %w", p, err)
			}
			if err := idx.PutEntry(&index.Entry{
				Path:     target.Path,
				BlobHash: target.BlobHash,
				Mode:     target.Mode,
				Size:     info.Size(),
				MTime:    info.ModTime().Unix(),
			}); err != nil {
				return fmt.Errorf("worktree: restore %q: restage: %w", p, err)
			}
		}
	}
	return nil
}
