package repo

import (
	"fmt"
	"os"
	"path/filepath"
)

// Rm removes paths from the index and, unless keepWorktree, deletes them
// from the working tree too. Grounded on the teacher's pkg/repo/staging.go
// removal path, rebuilt onto index.Index directly instead of the teacher's
// flat Staging map.
func (r *Repo) Rm(paths []string, keepWorktree bool) error {
	for _, p := range paths {
		rel, err := r.relPath(p)
		if err != nil {
			return fmt.Errorf("rm %q: %w", p, err)
		}
		if _, ok := r.Index.Get(rel); !ok {
			return fmt.Errorf("rm %q: not in index", rel)
		}
		r.Index.Remove(rel)
		if !keepWorktree {
			full := filepath.Join(r.RootDir, rel)
			if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("rm %q: %w", p, err)
			}
		}
	}
	return r.Index.Flush()
}
