package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/glyphvcs/glyph/pkg/object"
)

// FileEntry is one file surfaced by FlattenTree, with its full repo-relative
// path reconstructed from nested tree objects.
type FileEntry struct {
	Path     string
	BlobHash object.Hash
	Mode     string
}

// BuildTree converts the staged entries into a hierarchical tree, writing
// object.Tree objects for every directory level and returning the root
// hash. An empty index yields the hash of an empty tree. Grounded on the
// teacher's Repo.BuildTree/buildTreeDir.
func (idx *Index) BuildTree() (object.Hash, error) {
	return buildTreeDir(idx.objects, idx.Entries(), "")
}

// BuildTreeFromEntries is BuildTree for a caller that has a flat file list
// rather than a live Index — the merge/cherry-pick/rebase engine builds a
// tree straight from its own merged FileEntry slice without staging it into
// an *Index first.
func BuildTreeFromEntries(objects *object.Store, files []FileEntry) (object.Hash, error) {
	entries := make([]*Entry, len(files))
	for i, f := range files {
		entries[i] = &Entry{Path: f.Path, BlobHash: f.BlobHash, Mode: f.Mode}
	}
	return buildTreeDir(objects, entries, "")
}

func buildTreeDir(objects *object.Store, entries []*Entry, prefix string) (object.Hash, error) {
	files := make(map[string]*Entry)
	subdirs := make(map[string]bool)

	for _, e := range entries {
		rel := e.Path
		if prefix != "" {
			if !strings.HasPrefix(e.Path, prefix+"/") {
				continue
			}
			rel = e.Path[len(prefix)+1:]
		}
		if slash := strings.IndexByte(rel, '/'); slash < 0 {
			files[rel] = e
		} else {
			subdirs[rel[:slash]] = true
		}
	}

	names := make([]string, 0, len(files)+len(subdirs))
	for name := range files {
		names = append(names, name)
	}
	for name := range subdirs {
		if _, isFile := files[name]; !isFile {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var treeEntries []object.TreeEntry
	for _, name := range names {
		if e, isFile := files[name]; isFile {
			treeEntries = append(treeEntries, object.TreeEntry{
				Name: name,
				Mode: e.Mode,
				Hash: e.BlobHash,
			})
			continue
		}
		childPrefix := name
		if prefix != "" {
			childPrefix = prefix + "/" + name
		}
		subHash, err := buildTreeDir(objects, entries, childPrefix)
		if err != nil {
			return "", fmt.Errorf("index: build tree %q: %w", childPrefix, err)
		}
		treeEntries = append(treeEntries, object.TreeEntry{
			Name: name,
			Mode: object.ModeDir,
			Hash: subHash,
		})
	}

	h, err := objects.WriteTree(&object.Tree{Entries: treeEntries})
	if err != nil {
		return "", fmt.Errorf("index: write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// FlattenTree walks a tree object recursively and returns every file entry
// with its full path, used to restage the working tree from a commit during
// checkout and reset.
func FlattenTree(objects *object.Store, h object.Hash) ([]FileEntry, error) {
	return flattenTreeDir(objects, h, "")
}

func flattenTreeDir(objects *object.Store, h object.Hash, prefix string) ([]FileEntry, error) {
	tree, err := objects.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("index: flatten tree: read %s: %w", h, err)
	}

	var out []FileEntry
	for _, e := range tree.Entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}
		if e.IsDir() {
			sub, err := flattenTreeDir(objects, e.Hash, full)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, FileEntry{Path: full, BlobHash: e.Hash, Mode: e.Mode})
	}
	return out, nil
}
