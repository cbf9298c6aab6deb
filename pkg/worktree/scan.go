package worktree

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// listDirs returns every directory under root (including root itself as
// "") as a forward-slash path relative to root, sorted shallowest first —
// the order LoadIgnoreMatcher and LoadAttributesMatcher need so later
// layers (deeper directories) are appended after, and therefore win.
// The control directory is skipped entirely.
func listDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}
		if rel == ControlDirName || strings.HasPrefix(rel, ControlDirName+"/") {
			return filepath.SkipDir
		}
		dirs = append(dirs, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(dirs, func(i, j int) bool { return strings.Count(dirs[i], "/") < strings.Count(dirs[j], "/") })
	return dirs, nil
}
