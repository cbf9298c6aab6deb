package worktree

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
)

// Rename is a path pair status() reports when the index carries an
// explicit mv (spec 4.G: opportunistic, only from an explicit mv, never
// heuristic content matching).
type Rename struct {
	From string
	To   string
}

// Status is the result of Compute: the five categories spec 4.G's
// status() enumerates.
type Status struct {
	Untracked []string
	Added     []string
	Modified  []string
	Deleted   []string
	Renamed   []Rename
}

// Compute returns the working tree status relative to the current commit's
// tree (parentTree, "" if there is no commit yet) and the staged index.
// Grounded on the teacher's Repo.Status, generalized off StagingEntry/
// StatusEntry onto index.Entry and IgnoreMatcher, and dropping the
// heuristic rename detector per DESIGN.md.
func Compute(root string, idx *index.Index, objects *object.Store, parentTree object.Hash, ignore *IgnoreMatcher) (*Status, error) {
	var parentFiles []index.FileEntry
	if parentTree != "" {
		var err error
		parentFiles, err = index.FlattenTree(objects, parentTree)
		if err != nil {
			return nil, err
		}
	}
	parentMap := make(map[string]index.FileEntry, len(parentFiles))
	for _, f := range parentFiles {
		parentMap[f.Path] = f
	}

	indexEntries := idx.Entries()
	indexMap := make(map[string]*index.Entry, len(indexEntries))
	for _, e := range indexEntries {
		indexMap[e.Path] = e
	}

	wtFiles := make(map[string]os.FileInfo)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if ignore.IsIgnored(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		wtFiles[rel] = info
		return nil
	})
	if err != nil {
		return nil, err
	}

	st := &Status{}
	visited := make(map[string]bool)

	// Explicit renames: an index entry recorded via Move whose source path
	// existed in the parent tree with the same content.
	renamedSources := make(map[string]bool)
	for _, e := range indexMap {
		if e.RenamedFrom == "" {
			continue
		}
		if pf, ok := parentMap[e.RenamedFrom]; ok && pf.BlobHash == e.BlobHash {
			st.Renamed = append(st.Renamed, Rename{From: e.RenamedFrom, To: e.Path})
			renamedSources[e.RenamedFrom] = true
			visited[e.Path] = true
		}
	}

	paths := make(map[string]bool)
	for p := range parentMap {
		paths[p] = true
	}
	for p := range indexMap {
		paths[p] = true
	}
	for p := range wtFiles {
		paths[p] = true
	}

	for p := range paths {
		if visited[p] {
			continue
		}
		_, inParent := parentMap[p]
		e, inIndex := indexMap[p]
		info, inWT := wtFiles[p]

		if inWT && !inIndex {
			st.Untracked = append(st.Untracked, p)
			continue
		}
		if !inWT && (inParent || inIndex) && !renamedSources[p] {
			st.Deleted = append(st.Deleted, p)
			continue
		}
		if inIndex && !inParent {
			st.Added = append(st.Added, p)
			continue
		}
		if inIndex && inParent {
			pf := parentMap[p]
			if pf.BlobHash != e.BlobHash {
				st.Modified = append(st.Modified, p)
				continue
			}
			if inWT {
				wtHash, err := hashIfChanged(root, p, info, e, objects)
				if err != nil {
					return nil, err
				}
				if wtHash != "" && wtHash != e.BlobHash {
					st.Modified = append(st.Modified, p)
				}
			}
		}
	}

	sort.Strings(st.Untracked)
	sort.Strings(st.Added)
	sort.Strings(st.Modified)
	sort.Strings(st.Deleted)
	sort.Slice(st.Renamed, func(i, j int) bool { return st.Renamed[i].To < st.Renamed[j].To })
	return st, nil
}

// hashIfChanged recomputes a working-tree file's blob hash only when its
// size or mtime differs from the recorded index entry — mtime is an
// optimization hint, never authoritative, per spec 4.G's performance note.
// Returns "" when no recompute was needed (caller treats that as "assume
// unchanged").
func hashIfChanged(root, relPath string, info os.FileInfo, e *index.Entry, objects *object.Store) (object.Hash, error) {
	if info.Size() == e.Size && info.ModTime().Unix() == e.MTime {
		return "", nil
	}
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil {
		return "", err
	}
	return object.HashObject(object.TypeBlob, content), nil
}
